package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"agrisahayak.in/agri-sahayak/internal/app"
	"agrisahayak.in/agri-sahayak/internal/cache"
	"agrisahayak.in/agri-sahayak/internal/market"
	"agrisahayak.in/agri-sahayak/internal/session"
)

const helpText = `Commands:
  login <username> <password>
  signup <username> <password> <stateId> <districtId>
  logout
  whoami
  profile [set state=<id> district=<id> password=<pw>]
  ask [--image <path>] <question>
  history | clear
  market [commodities | states | districts]
  market commodity|state|district <id>
  market range <YYYY-MM-DD> <YYYY-MM-DD>
  weather [refresh]
  lang [en|hi|mr|pa|te|ta]
  cache stats | cache clear [namespace]
  fertilizer
  help | quit`

var errQuit = errors.New("quit")

var errUsage = errors.New("usage")

// gatedCommands need a signed-in user.
var gatedCommands = map[string]bool{
	"profile":    true,
	"ask":        true,
	"history":    true,
	"clear":      true,
	"market":     true,
	"weather":    true,
	"fertilizer": true,
}

type shell struct {
	app *app.App
	in  *bufio.Scanner
	out *console
}

func newShell(a *app.App, in io.Reader, out *console) *shell {
	return &shell{app: a, in: bufio.NewScanner(in), out: out}
}

func (s *shell) Run(ctx context.Context) error {
	s.out.title("Agri Sahayak")
	s.out.println("Type help for a list of commands.")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		for s.in.Scan() {
			select {
			case lines <- s.in.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- s.in.Err()
	}()

	for {
		s.out.prompt(labelStyle.Render("sahayak> "))
		var line string
		select {
		case <-ctx.Done():
			s.out.println("")
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		err := s.exec(ctx, line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, errUsage):
			s.out.fail("Invalid arguments. Type help for usage.")
		case err != nil:
			s.out.fail(app.UserMessage(err))
		}
	}
}

func (s *shell) exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	cmd, args := strings.ToLower(args[0]), args[1:]

	if gatedCommands[cmd] && !s.app.Session().IsAuthenticated() {
		return session.ErrNotAuthenticated
	}

	switch cmd {
	case "help", "?":
		s.out.println(helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "login":
		return s.login(ctx, args)
	case "signup":
		return s.signup(ctx, args)
	case "logout":
		s.app.Logout()
		s.out.ok("Signed out.")
		return nil
	case "whoami":
		s.whoami()
		return nil
	case "profile":
		return s.profile(ctx, args)
	case "ask":
		return s.ask(ctx, args)
	case "history":
		for _, m := range s.app.Chat.Messages() {
			s.out.message(m)
		}
		return nil
	case "clear":
		s.app.Chat.Clear()
		s.out.ok("Chat cleared.")
		return nil
	case "market":
		return s.market(ctx, args)
	case "weather":
		return s.weather(ctx, args)
	case "lang":
		return s.lang(args)
	case "cache":
		return s.cache(args)
	case "fertilizer":
		s.out.println("Fertilizer dosage calculator: " + app.FertilizerURL)
		return nil
	}
	s.out.fail(fmt.Sprintf("Unknown command %q. Type help for a list of commands.", cmd))
	return nil
}

func (s *shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	if err := s.app.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	s.out.ok("Welcome, " + args[0] + "!")
	return nil
}

func (s *shell) signup(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return errUsage
	}
	stateID, err1 := strconv.Atoi(args[2])
	districtID, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil {
		return errUsage
	}
	if err := s.app.Signup(ctx, args[0], args[1], stateID, districtID); err != nil {
		return err
	}
	s.out.ok("Account created. You can now log in.")
	return nil
}

func (s *shell) whoami() {
	st := s.app.Session().State()
	if st.Status == session.Anonymous {
		s.out.println("Not signed in.")
		return
	}
	s.out.field("User", st.Profile.Username)
	s.out.field("Session", st.Status)
}

func (s *shell) profile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		d, err := s.app.Profile.Details(ctx)
		if err != nil {
			return err
		}
		s.out.field("Username", d.Username)
		s.out.field("State", nameOrID(d.StateName, d.StateID))
		s.out.field("District", nameOrID(d.DistrictName, d.DistrictID))
		return nil
	}
	if args[0] != "set" {
		return errUsage
	}

	var u session.ProfileUpdate
	for _, kv := range args[1:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return errUsage
		}
		switch key {
		case "password":
			u.Password = &value
		case "state", "district":
			id, err := strconv.Atoi(value)
			if err != nil {
				return errUsage
			}
			if key == "state" {
				u.StateID = &id
			} else {
				u.DistrictID = &id
			}
		default:
			return errUsage
		}
	}
	if err := s.app.Profile.Update(ctx, u); err != nil {
		return err
	}
	s.out.ok("Profile updated.")
	return nil
}

func (s *shell) ask(ctx context.Context, args []string) error {
	var image string
	if len(args) >= 2 && args[0] == "--image" {
		image, args = args[1], args[2:]
	}
	msg, err := s.app.Chat.Send(ctx, strings.Join(args, " "), image)
	if msg.Content != "" {
		s.out.message(msg)
	}
	return err
}

func (s *shell) market(ctx context.Context, args []string) error {
	mv := s.app.Market
	commodities, states, err := mv.LoadReference(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return s.marketSummary(ctx)
	}

	switch args[0] {
	case "commodities":
		for _, c := range commodities {
			s.out.println(fmt.Sprintf("%5d  %s", c.ID, c.Name))
		}
		return nil
	case "states":
		for _, st := range states {
			s.out.println(fmt.Sprintf("%5d  %s", st.ID, st.Name))
		}
		return nil
	case "districts":
		districts, err := mv.SelectState(ctx, mv.Selection().StateID)
		if err != nil {
			return err
		}
		for _, d := range districts {
			s.out.println(fmt.Sprintf("%5d  %s", d.ID, d.Name))
		}
		return nil
	case "range":
		if len(args) != 3 {
			return errUsage
		}
		from, err1 := time.Parse(time.DateOnly, args[1])
		to, err2 := time.Parse(time.DateOnly, args[2])
		if err1 != nil || err2 != nil {
			return errUsage
		}
		return mv.SetDateRange(from, to)
	}

	if len(args) != 2 {
		return errUsage
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	switch args[0] {
	case "commodity":
		mv.SelectCommodity(id)
	case "state":
		if _, err := mv.SelectState(ctx, id); err != nil {
			return err
		}
	case "district":
		mv.SelectDistrict(id)
	default:
		return errUsage
	}
	return nil
}

func (s *shell) marketSummary(ctx context.Context) error {
	mv := s.app.Market
	if mv.Selection().DistrictID == 0 {
		if _, err := mv.SelectState(ctx, mv.Selection().StateID); err != nil {
			return err
		}
	}
	data, err := mv.Load(ctx)
	if err != nil {
		return err
	}

	sel := mv.Selection()
	sum := app.Summarize(data)
	s.out.title(fmt.Sprintf("Market %s to %s", sel.From, sel.To))
	if sum.LatestPrice != nil {
		p := sum.LatestPrice
		s.out.field("Latest modal price", fmt.Sprintf("Rs %s/quintal on %s (min %s, max %s)",
			p.ModalPrice.StringFixed(2), p.Date, p.MinPrice.StringFixed(2), p.MaxPrice.StringFixed(2)))
	} else {
		s.out.println("No price data for this selection.")
	}
	if sum.LatestQuantity != nil {
		s.out.field("Latest arrivals", fmt.Sprintf("%s tonnes on %s",
			sum.LatestQuantity.Quantity.StringFixed(2), sum.LatestQuantity.Date))
	}
	s.printSeries("Daily modal price", sum.DailyPrices)
	s.printSeries("Daily arrivals", sum.DailyQuantities)
	return nil
}

func (s *shell) printSeries(title string, values []market.DailyValue) {
	if len(values) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(title)
	for _, v := range values {
		fmt.Fprintf(&b, "\n%s  %s", v.Date, v.Value.StringFixed(2))
	}
	s.out.panel(b.String())
}

func (s *shell) weather(ctx context.Context, args []string) error {
	load := s.app.Weather.Load
	if len(args) == 1 && args[0] == "refresh" {
		load = s.app.Weather.Refresh
	} else if len(args) > 0 {
		return errUsage
	}

	r, err := load(ctx)
	if err != nil {
		return err
	}
	if r.LocationErr != nil {
		s.out.info(app.UserMessage(r.LocationErr))
	}

	c := r.Forecast.Current
	name := r.Location.Name
	if name == "" {
		name = fmt.Sprintf("%.4f, %.4f", r.Location.Latitude, r.Location.Longitude)
	}
	s.out.title("Weather for " + name)
	s.out.field("Now", fmt.Sprintf("%s, %.1f°C, humidity %.0f%%", r.Description, c.Temperature, c.RelativeHumidity))
	s.out.field("Wind", fmt.Sprintf("%.1f km/h", c.WindSpeed))
	s.out.field("Soil moisture", fmt.Sprintf("%.2f m³/m³", c.SoilMoisture))

	d := r.Forecast.Daily
	for i := 0; i < len(d.Time) && i < 3; i++ {
		line := d.Time[i]
		if i < len(d.TemperatureMin) && i < len(d.TemperatureMax) {
			line += fmt.Sprintf("  %.0f-%.0f°C", d.TemperatureMin[i], d.TemperatureMax[i])
		}
		if i < len(d.PrecipitationSum) {
			line += fmt.Sprintf("  rain %.1f mm", d.PrecipitationSum[i])
		}
		s.out.println(line)
	}

	in := r.Insights
	s.out.panel(strings.Join([]string{
		"Irrigation: " + in.Irrigation,
		"Crop health: " + in.CropHealth,
		"Pest risk: " + in.PestRisk,
		"Harvest: " + in.HarvestTiming,
	}, "\n"))
	return nil
}

func (s *shell) lang(args []string) error {
	if len(args) == 0 {
		s.out.field("Language", s.app.Language())
		return nil
	}
	if err := s.app.SetLanguage(args[0]); err != nil {
		return err
	}
	s.out.ok("Language set to " + args[0] + ".")
	return nil
}

func (s *shell) cache(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	c := s.app.Cache()
	switch args[0] {
	case "stats":
		st := c.Stats()
		s.out.field("Hits", st.Hits)
		s.out.field("Misses", st.Misses)
		s.out.field("Messages", st.Messages)
		for ns, n := range st.Entries {
			s.out.field(string(ns), n)
		}
		return nil
	case "clear":
		if len(args) == 1 {
			c.ClearAll()
		} else {
			c.ClearNamespace(cache.Namespace(args[1]))
		}
		s.out.ok("Cache cleared.")
		return nil
	}
	return errUsage
}

func nameOrID(name string, id int) string {
	if name == "" {
		return strconv.Itoa(id)
	}
	return fmt.Sprintf("%s (%d)", name, id)
}
