package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"impact-registration/internal/domain"
	"impact-registration/internal/jobs"
	"impact-registration/internal/scheduler"
	"impact-registration/internal/service"
	"impact-registration/internal/session"
	"impact-registration/internal/validation"
)

// stringList collects a repeatable flag
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func cmdEvents(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("events")
	regType := fs.String("type", "", "only events open to solo or team")
	if err := fs.Parse(args); err != nil {
		return err
	}

	events := domain.Events
	if *regType != "" {
		t := domain.RegistrationType(*regType)
		if !t.Valid() {
			return fmt.Errorf("unknown registration type %q", *regType)
		}
		events = domain.EventsFor(t)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ev.ID, ev.Name, ev.Type)
	}
	return tw.Flush()
}

func credentialFlags(name string, withName bool) (*flag.FlagSet, *string, *string, *string) {
	fs := newFlagSet(name)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	var fullName *string
	if withName {
		fullName = fs.String("name", "", "your name")
	}
	return fs, email, password, fullName
}

func cmdSignUp(ctx context.Context, a *app, args []string) error {
	fs, email, password, name := credentialFlags("signup", true)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return service.NewAuthService(a.client, a.store, a.notifier).SignUp(ctx, *name, *email, *password)
}

func cmdSignIn(ctx context.Context, a *app, args []string) error {
	fs, email, password, _ := credentialFlags("signin", false)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return service.NewAuthService(a.client, a.store, a.notifier).SignIn(ctx, *email, *password)
}

func cmdAdminSignIn(ctx context.Context, a *app, args []string) error {
	fs, email, password, _ := credentialFlags("admin-signin", false)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return service.NewAuthService(a.client, a.store, a.notifier).AdminSignIn(ctx, *email, *password)
}

func roleFlag(fs *flag.FlagSet) *bool {
	return fs.Bool("admin", false, "use the admin credential")
}

func roleOf(admin bool) session.Role {
	if admin {
		return session.RoleAdmin
	}
	return session.RoleUser
}

func cmdCheck(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("check")
	admin := roleFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	valid, err := service.NewAuthService(a.client, a.store, a.notifier).CheckToken(ctx, roleOf(*admin))
	if err != nil {
		return err
	}
	if valid {
		fmt.Fprintln(a.out, "credential is valid")
		return nil
	}
	fmt.Fprintln(a.out, "not signed in")
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("logout")
	admin := roleFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := service.NewAuthService(a.client, a.store, a.notifier).Logout(ctx, roleOf(*admin)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	regType := fs.String("type", "solo", "solo or team")
	event := fs.String("event", "", "event name or id")
	txn := fs.String("txn", "", "payment transaction id")
	screenshot := fs.String("screenshot", "", "path to the payment screenshot")
	fullName := fs.String("name", "", "your full name (solo)")
	teamName := fs.String("team-name", "", "team name (team)")
	leader := fs.String("leader", "", "team leader (team)")
	var members stringList
	fs.Var(&members, "member", "team member name, repeat for each member (team)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := service.NewRegistrationForm(a.client, session.New(a.store, session.RoleUser), a.schema, a.notifier, service.WithEvent(*event))
	if err := form.SetRegistrationType(domain.RegistrationType(*regType)); err != nil {
		return err
	}

	eventName := *event
	if ev, ok := domain.FindEvent(*event); ok {
		eventName = ev.Name
	}
	fields := map[string]string{
		service.FieldEventName:      eventName,
		service.FieldTransactionUID: *txn,
		service.FieldFullName:       *fullName,
		service.FieldTeamName:       *teamName,
		service.FieldTeamLeader:     *leader,
	}
	for name, value := range fields {
		if err := form.SetField(name, value); err != nil {
			return err
		}
	}

	for i, m := range members {
		if i > 0 {
			if err := form.AddMember(); err != nil {
				return err
			}
		}
		if err := form.SetMember(i, m); err != nil {
			return err
		}
	}
	if len(members) == 0 {
		if err := form.RemoveMember(0); err != nil {
			return err
		}
	}

	if *screenshot != "" {
		data, err := os.ReadFile(*screenshot)
		if err != nil {
			return fmt.Errorf("failed to read screenshot: %w", err)
		}
		if err := form.SetScreenshot(validation.NewScreenshot(filepath.Base(*screenshot), data)); err != nil {
			return err
		}
	}

	if err := form.Submit(ctx); err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Fields {
				fmt.Fprintf(a.out, "  %s: %s\n", fe.Path, fe.Message)
			}
		}
		return err
	}

	conf, _ := form.Confirmation()
	fmt.Fprintf(a.out, "%s\n%s\n", conf.Title, conf.Message)
	return nil
}

func cmdProfile(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("profile").Parse(args); err != nil {
		return err
	}
	view := service.NewProfileView(a.client, session.New(a.store, session.RoleUser))
	if err := view.Load(ctx); err != nil {
		fmt.Fprintln(a.out, view.Message())
		return err
	}

	user := view.User()
	fmt.Fprintf(a.out, "%s\n\n", user.Email)
	regs := view.Registrations()
	if len(regs) == 0 {
		fmt.Fprintln(a.out, "No registrations yet.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEVENT\tTYPE\tNAME\tTRANSACTION\tSTATUS\tREGISTERED")
	for _, r := range regs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.EventName, r.RegistrationType, r.DisplayName(), r.TransactionUID, r.StatusText(), r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func cmdPass(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("pass")
	id := fs.String("id", "", "registration id")
	out := fs.String("out", "", "output PNG file (default <id>.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	path := *out
	if path == "" {
		path = *id + ".png"
	}

	view := service.NewProfileView(a.client, session.New(a.store, session.RoleUser))
	if err := view.Load(ctx); err != nil {
		fmt.Fprintln(a.out, view.Message())
		return err
	}
	for _, r := range view.Registrations() {
		if r.ID != *id {
			continue
		}
		if err := a.passes.WriteFile(r, path); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "entry pass written to %s\n", path)
		return nil
	}
	return fmt.Errorf("registration %q not found in your profile", *id)
}

func cmdDashboard(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("dashboard")
	query := fs.String("q", "", "search email, transaction id, event or name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	view := service.NewDashboardView(a.client, session.New(a.store, session.RoleAdmin), a.notifier)
	if err := view.Load(ctx); err != nil {
		if msg := view.Message(); msg != "" {
			fmt.Fprintln(a.out, msg)
		}
		return err
	}

	rows := view.Search(*query)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tEVENT\tTYPE\tNAME\tTRANSACTION\tVERIFIED\tSCREENSHOT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			r.RegistrationID, r.UserEmail, r.EventName, r.RegistrationType, r.DisplayName, r.TransactionUID, r.Verified, r.PaymentScreenshotURL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d of %d registrations\n", len(rows), len(view.Rows()))
	return nil
}

func cmdVerify(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("verify")
	id := fs.String("id", "", "registration id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	view := service.NewDashboardView(a.client, session.New(a.store, session.RoleAdmin), a.notifier)
	if err := view.Load(ctx); err != nil {
		if msg := view.Message(); msg != "" {
			fmt.Fprintln(a.out, msg)
		}
		return err
	}
	for _, r := range view.Rows() {
		if r.RegistrationID == *id {
			return view.ToggleVerification(ctx, r.RegistrationID, r.Verified)
		}
	}
	return fmt.Errorf("registration %q not found", *id)
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("watch")
	schedule := fs.String("schedule", a.cfg.Watch.Schedule, "cron spec with seconds, or a descriptor such as @every 1m")
	passDir := fs.String("pass-dir", a.cfg.Watch.PassDir, "write entry passes here as registrations get verified")
	once := fs.Bool("once", false, "check once and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := *a.cfg
	cfg.Watch.Schedule = *schedule
	cfg.Watch.PassDir = *passDir
	runner := jobs.NewJobRunner(ctx, a.client, a.store, a.notifier, a.passes, &cfg)

	if *once {
		_, err := runner.CheckVerifications(ctx)
		return err
	}

	s := scheduler.NewScheduler()
	if err := s.Add("watch-verifications", cfg.Watch.Schedule, runner.WatchVerifications); err != nil {
		return err
	}
	s.RunNow("watch-verifications", runner.WatchVerifications)
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}
