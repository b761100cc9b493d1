// Command console is the reviewer-facing terminal front end: log in, scan
// the dashboard, and work the pending-review queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"sitedesk.org/internal/console/client"
	"sitedesk.org/internal/console/session"
	"sitedesk.org/internal/console/ui"
	"sitedesk.org/internal/console/workflow"
	"sitedesk.org/internal/registry"
)

const usage = `usage: console <command> [flags]

commands:
  login      -username <email> -password <password> [-force]
  logout
  whoami
  dashboard
  reviews
  show       <review-id>
  approve    <review-id> [-note <text>]
  reject     <review-id> -reason <text>
  edit       <review-id> [field flags]
  areas
  blocks     <area-id-or-name>
`

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	sess, err := session.Load(sessionPath())
	if err != nil {
		log.Fatalf("load session: %v", err)
	}
	api := client.New(apiURL(), sess)

	app := &app{api: api, sess: sess}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%v", err)
	}
}

type app struct {
	api  *client.Client
	sess *session.Store
}

// teardown is the centralized unauthorized handler: clear the session so
// the next command lands on login.
func (a *app) teardown() {
	_ = a.sess.Clear()
	fmt.Fprintln(os.Stderr, "Session expired. Run `console login` to continue.")
}

// requiresAuth lists the commands that refuse to run without a session.
var requiresAuth = map[string]bool{
	"dashboard": true,
	"reviews":   true,
	"show":      true,
	"approve":   true,
	"reject":    true,
	"edit":      true,
	"areas":     true,
	"blocks":    true,
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	if requiresAuth[command] && !a.sess.IsAuthenticated() {
		return fmt.Errorf("not logged in; run `console login` first")
	}
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "dashboard":
		return a.dashboard(ctx)
	case "reviews":
		return a.reviews(ctx)
	case "show":
		return a.show(ctx, args)
	case "approve":
		return a.approve(ctx, args)
	case "reject":
		return a.reject(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "areas":
		return a.areas(ctx)
	case "blocks":
		return a.blocks(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "employee email")
	password := fs.String("password", "", "password")
	force := fs.Bool("force", false, "replace an existing session")
	_ = fs.Parse(args)
	if *username == "" || *password == "" {
		return fmt.Errorf("login requires -username and -password")
	}
	if a.sess.IsAuthenticated() && !*force {
		return fmt.Errorf("already logged in as %s; use -force to replace the session", a.sess.Employee().Email)
	}

	res, err := a.api.Login(ctx, *username, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	err = a.sess.Set(res.Token, session.Employee{
		ID:       res.Employee.ID,
		FullName: res.Employee.FullName,
		Email:    res.Employee.Email,
		Role:     res.Employee.Role,
		Status:   res.Employee.Status,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s)\n", res.Employee.FullName, res.Employee.Role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if a.sess.IsAuthenticated() {
		// Best-effort server-side audit entry; the local session is cleared
		// regardless.
		_ = a.api.Logout(ctx)
	}
	if err := a.sess.Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func (a *app) whoami() error {
	if !a.sess.IsAuthenticated() {
		fmt.Println("Not logged in.")
		return nil
	}
	emp := a.sess.Employee()
	fmt.Printf("%s <%s> role=%s\n", emp.FullName, emp.Email, emp.Role)
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	d := workflow.NewDashboard(a.api, a.teardown)
	if err := d.Refresh(ctx); err != nil {
		return fmt.Errorf("load dashboard: %w", err)
	}
	metrics, activity := d.Snapshot()

	fmt.Printf("Pending reviews:  %d\n", metrics.PendingReviews)
	fmt.Printf("Assigned reviews: %d\n", metrics.AssignedReviews)
	fmt.Printf("Pending tickets:  %d\n", metrics.PendingTickets)
	fmt.Printf("Resolved today:   %d\n", metrics.ResolvedToday)
	fmt.Printf("Users:            %d total, %d active\n", metrics.TotalUsers, metrics.ActiveUsers)

	fmt.Println("\nRecent activity:")
	table := ui.Table{
		Columns: []ui.Column{
			{Header: "WHEN", Cell: func(i int) string { return activity[i].CreatedAt.Local().Format("Jan 02 15:04") }},
			{Header: "TYPE", Cell: func(i int) string { return activity[i].Type }},
			{Header: "MESSAGE", Cell: func(i int) string { return activity[i].Message }},
		},
		Empty: "No recent activity.",
	}
	return table.Render(os.Stdout, len(activity))
}

func (a *app) reviews(ctx context.Context) error {
	w := workflow.NewReviews(a.api, a.teardown)
	if err := w.Refresh(ctx); err != nil {
		return fmt.Errorf("load reviews: %w", err)
	}
	list := w.List()
	table := ui.Table{
		Columns: []ui.Column{
			{Header: "ID", Cell: func(i int) string { return list[i].ID }},
			{Header: "STATUS", Cell: func(i int) string { return ui.StatusBadge(list[i].Status) }},
			{Header: "PRIORITY", Cell: func(i int) string { return ui.PriorityBadge(list[i].Priority) }},
			{Header: "ADDRESS", Cell: func(i int) string {
				s := list[i].Site
				return fmt.Sprintf("%s, %s (%s / %s)", s.HouseNo, s.Street, s.Area.Name, s.Block.Name)
			}},
			{Header: "SUBMITTED", Cell: func(i int) string { return list[i].CreatedAt.Local().Format("Jan 02 2006") }},
		},
		Empty: "No pending reviews.",
	}
	return table.Render(os.Stdout, len(list))
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("show requires a review id")
	}
	w := workflow.NewReviews(a.api, a.teardown)
	if err := w.Refresh(ctx); err != nil {
		return fmt.Errorf("load reviews: %w", err)
	}
	if err := w.Open(ctx, args[0]); err != nil {
		return err
	}
	r := w.Current()
	if r == nil {
		return registry.ErrReviewNotFound
	}
	printReview(*r)
	return nil
}

func printReview(r registry.Review) {
	fmt.Printf("Review %s  %s  %s\n", r.ID, ui.StatusBadge(r.Status), ui.PriorityBadge(r.Priority))
	s := r.Site
	fmt.Printf("Site:    %s, %s\n", s.HouseNo, s.Street)
	fmt.Printf("Area:    %s / %s\n", s.Area.Name, s.Block.Name)
	if s.NearestLandmark != "" {
		fmt.Printf("Landmark: %s\n", s.NearestLandmark)
	}
	if s.PinLat != nil && s.PinLng != nil {
		fmt.Printf("Pin:     %.5f, %.5f\n", *s.PinLat, *s.PinLng)
	}
	if r.Assignee != nil {
		fmt.Printf("Assignee: %s\n", r.Assignee.FullName)
	}
	if len(s.Memberships) > 0 {
		fmt.Println("Members:")
		for _, m := range s.Memberships {
			state := "inactive"
			if m.IsActive {
				state = "active"
			}
			fmt.Printf("  %s %s (%s, %s)\n", m.User.FirstName, m.User.LastName, m.Role, state)
		}
	}
	if len(s.Documents) > 0 {
		fmt.Println("Documents:")
		for _, d := range s.Documents {
			fmt.Printf("  [%s] %s\n", d.Type, d.FileURI)
		}
	}
	if len(r.Events) > 0 {
		fmt.Println("History:")
		for _, ev := range r.Events {
			fmt.Printf("  %s  %s -> %s  %s\n",
				ev.CreatedAt.Local().Format("Jan 02 15:04"), ev.Action, ui.StatusBadge(ev.ToStatus), ev.Note)
		}
	}
}

func (a *app) approve(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("approve requires a review id")
	}
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	note := fs.String("note", "", "approval note")
	_ = fs.Parse(args[1:])

	w := workflow.NewReviews(a.api, a.teardown)
	if err := w.Approve(ctx, args[0], *note); err != nil {
		return fmt.Errorf("approve %s: %w", args[0], err)
	}
	fmt.Printf("Approved %s\n", args[0])
	return nil
}

func (a *app) reject(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("reject requires a review id")
	}
	fs := flag.NewFlagSet("reject", flag.ExitOnError)
	reason := fs.String("reason", "", "rejection reason (required)")
	_ = fs.Parse(args[1:])

	w := workflow.NewReviews(a.api, a.teardown)
	if err := w.Reject(ctx, args[0], *reason); err != nil {
		return fmt.Errorf("reject %s: %w", args[0], err)
	}
	fmt.Printf("Rejected %s\n", args[0])
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("edit requires a review id")
	}
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	houseNo := fs.String("house-no", "", "house number")
	street := fs.String("street", "", "street")
	landmark := fs.String("landmark", "", "nearest landmark")
	directions := fs.String("directions", "", "additional directions")
	area := fs.String("area", "", "area id or name")
	block := fs.String("block", "", "block id or name")
	pinLat := fs.Float64("pin-lat", 0, "pin latitude")
	pinLng := fs.Float64("pin-lng", 0, "pin longitude")
	pinAcc := fs.Float64("pin-accuracy", 0, "pin accuracy in meters")
	_ = fs.Parse(args[1:])

	w := workflow.NewReviews(a.api, a.teardown)
	if err := w.Refresh(ctx); err != nil {
		return fmt.Errorf("load reviews: %w", err)
	}
	if err := w.Open(ctx, args[0]); err != nil {
		return err
	}
	draft, err := w.BeginEdit()
	if err != nil {
		return err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["house-no"] {
		draft.SetHouseNo(*houseNo)
	}
	if set["street"] {
		draft.SetStreet(*street)
	}
	if set["landmark"] {
		draft.SetNearestLandmark(*landmark)
	}
	if set["directions"] {
		draft.SetAdditionalDirections(*directions)
	}
	if set["area"] {
		opt, err := a.chooseArea(ctx, *area)
		if err != nil {
			return err
		}
		draft.SetArea(opt.ID)
	}
	if set["block"] {
		// Blocks are scoped to the area the draft currently points at.
		blocks, err := a.api.ListBlocksByArea(ctx, draft.Site().Area.ID)
		if err != nil {
			return fmt.Errorf("list blocks: %w", err)
		}
		opt, err := chooseOption("block", *block, blockOptions(blocks))
		if err != nil {
			return err
		}
		draft.SetBlock(opt.ID)
	}
	if set["pin-lat"] {
		draft.SetPinLat(*pinLat)
	}
	if set["pin-lng"] {
		draft.SetPinLng(*pinLng)
	}
	if set["pin-accuracy"] {
		draft.SetPinAccuracyM(*pinAcc)
	}

	if !draft.HasChanges() {
		w.CancelEdit()
		fmt.Println("No changes.")
		return nil
	}
	if err := w.SaveEdit(ctx); err != nil {
		return fmt.Errorf("save edit: %w", err)
	}
	fmt.Printf("Updated %s\n", args[0])
	return nil
}

func (a *app) areas(ctx context.Context) error {
	areas, err := a.api.ListAreas(ctx)
	if err != nil {
		return fmt.Errorf("list areas: %w", err)
	}
	table := ui.Table{
		Columns: []ui.Column{
			{Header: "ID", Cell: func(i int) string { return strconv.Itoa(areas[i].ID) }},
			{Header: "NAME", Cell: func(i int) string { return areas[i].Name }},
		},
		Empty: "No areas.",
	}
	return table.Render(os.Stdout, len(areas))
}

func (a *app) blocks(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("blocks requires an area id or name")
	}
	area, err := a.chooseArea(ctx, args[0])
	if err != nil {
		return err
	}
	blocks, err := a.api.ListBlocksByArea(ctx, area.ID)
	if err != nil {
		return fmt.Errorf("list blocks: %w", err)
	}
	table := ui.Table{
		Columns: []ui.Column{
			{Header: "ID", Cell: func(i int) string { return strconv.Itoa(blocks[i].ID) }},
			{Header: "NAME", Cell: func(i int) string { return blocks[i].Name }},
		},
		Empty: "No blocks in this area.",
	}
	return table.Render(os.Stdout, len(blocks))
}

// chooseArea resolves an area id or name query against the live area list.
func (a *app) chooseArea(ctx context.Context, value string) (ui.Option, error) {
	areas, err := a.api.ListAreas(ctx)
	if err != nil {
		return ui.Option{}, fmt.Errorf("list areas: %w", err)
	}
	return chooseOption("area", value, areaOptions(areas))
}

// chooseOption resolves a user-supplied value through the searchable select:
// a numeric value picks by id, anything else filters by name and must narrow
// the list to a single match.
func chooseOption(kind, value string, options []ui.Option) (ui.Option, error) {
	sel := ui.NewSelect(options)
	sel.Open()
	if id, err := strconv.Atoi(value); err == nil {
		if !sel.Choose(id) {
			return ui.Option{}, fmt.Errorf("no %s with id %d", kind, id)
		}
		return *sel.Chosen(), nil
	}
	sel.Search(value)
	visible := sel.Visible()
	switch len(visible) {
	case 0:
		return ui.Option{}, fmt.Errorf("no %s matches %q", kind, value)
	case 1:
		sel.Choose(visible[0].ID)
		return *sel.Chosen(), nil
	default:
		names := make([]string, len(visible))
		for i, o := range visible {
			names[i] = o.Name
		}
		return ui.Option{}, fmt.Errorf("%q matches more than one %s: %s", value, kind, strings.Join(names, ", "))
	}
}

func areaOptions(areas []registry.Area) []ui.Option {
	out := make([]ui.Option, len(areas))
	for i, a := range areas {
		out[i] = ui.Option{ID: a.ID, Name: a.Name}
	}
	return out
}

func blockOptions(blocks []registry.Block) []ui.Option {
	out := make([]ui.Option, len(blocks))
	for i, b := range blocks {
		out[i] = ui.Option{ID: b.ID, Name: b.Name}
	}
	return out
}

func apiURL() string {
	if v := os.Getenv("SITEDESK_API_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func sessionPath() string {
	if v := os.Getenv("SITEDESK_SESSION_FILE"); v != "" {
		return v
	}
	return session.DefaultPath()
}
