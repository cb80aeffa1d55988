package store

import "time"

type User struct {
	ID           int64     `json:"-"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never leaves the directory
	StateID      int       `json:"stateId"`
	DistrictID   int       `json:"districtId"`
	CreatedAt    time.Time `json:"-"`
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	PasswordHash *string
	StateID      *int
	DistrictID   *int
}

func (u UserUpdate) IsEmpty() bool {
	return u.PasswordHash == nil && u.StateID == nil && u.DistrictID == nil
}
