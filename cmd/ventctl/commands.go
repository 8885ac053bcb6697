package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Rylogix/VentBoard/internal/actions"
	"github.com/Rylogix/VentBoard/internal/bootstrap"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/state"
	"github.com/Rylogix/VentBoard/internal/timefmt"

	"github.com/k0kubun/pp"
)

const usage = `usage: ventctl <command> [flags] [args]

commands:
  feed [-pages N]              list confessions
  post [-name NAME] TEXT       post a confession, signed with NAME when given
  replies [-more N] POST_ID    show a confession's replies
  reply [-name NAME] POST_ID TEXT
                               reply to a confession
  undo                         delete your last confession
  state                        dump the client state
  whoami                       print the anonymous user id
`

var errUsage = errors.New("invalid usage")

type cli struct {
	client *bootstrap.Client
	out    io.Writer
	now    func() time.Time
}

func (c *cli) execute(ctx context.Context, args []string) error {
	name, rest := args[0], args[1:]
	switch name {
	case "feed":
		return c.feed(ctx, rest)
	case "post":
		return c.post(ctx, rest)
	case "replies":
		return c.replies(ctx, rest)
	case "reply":
		return c.reply(ctx, rest)
	case "undo":
		return c.undo(ctx)
	case "state":
		return c.state(ctx)
	case "whoami":
		return c.whoami(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
		return nil
	default:
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

// start signs in and waits for the cooldown to be restored.
func (c *cli) start(ctx context.Context) error {
	if msg := c.client.Store.GetState().ConfigError; msg != "" {
		return models.NewConfigurationError(msg)
	}
	if err := c.client.Start(ctx); err != nil {
		return err
	}
	c.client.Session.Wait()
	return nil
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *cli) feed(ctx context.Context, args []string) error {
	fs := c.flags("feed")
	pages := fs.Int("pages", 1, "number of pages to load")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.start(ctx); err != nil {
		return err
	}

	a := c.client.Actions
	if err := a.LoadInitial(ctx); err != nil {
		return err
	}
	for i := 1; i < *pages && a.Store().GetState().Page.HasMore; i++ {
		if err := a.LoadMore(ctx); err != nil {
			return err
		}
	}
	if err := a.RefreshTotal(ctx); err != nil {
		return err
	}

	s := a.Store().GetState()
	if len(s.Confessions) == 0 {
		fmt.Fprintln(c.out, "No confessions yet.")
		return nil
	}
	now := c.now()
	for _, conf := range s.Confessions {
		c.printConfession(conf, now)
	}

	footer := fmt.Sprintf("showing %d", len(s.Confessions))
	if s.Total != nil {
		footer += fmt.Sprintf(" of %d", *s.Total)
	}
	if s.Page.HasMore {
		footer += fmt.Sprintf(" (more with -pages %d)", *pages+1)
	}
	fmt.Fprintln(c.out, footer)
	return nil
}

func (c *cli) printConfession(conf models.Confession, now time.Time) {
	header := fmt.Sprintf("[%s] %s · %s", conf.ID, conf.DisplayName(), timefmt.FormatRelative(conf.CreatedAt, now))
	if conf.ReplyCount != nil {
		header += fmt.Sprintf(" · %d %s", *conf.ReplyCount, plural(*conf.ReplyCount, "reply", "replies"))
	}
	fmt.Fprintln(c.out, header)
	fmt.Fprintln(c.out, indent(conf.Content))
	fmt.Fprintln(c.out)
}

func (c *cli) post(ctx context.Context, args []string) error {
	fs := c.flags("post")
	name := fs.String("name", "", "sign the confession with this name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.start(ctx); err != nil {
		return err
	}

	in := actions.SubmitInput{Content: strings.Join(fs.Args(), " "), Mode: models.ModeAnonymous}
	if strings.TrimSpace(*name) != "" {
		in.Mode = models.ModePublic
		in.Name = *name
	}
	row, err := c.client.Actions.Submit(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Posted %s as %s.\n", row.ID, row.DisplayName())
	return nil
}

func (c *cli) replies(ctx context.Context, args []string) error {
	fs := c.flags("replies")
	more := fs.Int("more", 0, "additional pages to load")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: replies takes exactly one POST_ID", errUsage)
	}
	postID := fs.Arg(0)
	if err := c.start(ctx); err != nil {
		return err
	}

	a := c.client.Actions
	if err := a.OpenReplies(ctx, postID); err != nil {
		return err
	}
	for i := 0; i < *more && a.Store().GetState().Thread(postID).Page.HasMore; i++ {
		if err := a.LoadMoreReplies(ctx, postID); err != nil {
			return err
		}
	}

	c.printThread(a.Store().GetState().Thread(postID))
	return nil
}

func (c *cli) printThread(t state.ReplyThread) {
	if len(t.Items) == 0 {
		fmt.Fprintln(c.out, "No replies yet.")
		return
	}
	now := c.now()
	for _, r := range t.Items {
		fmt.Fprintf(c.out, "%s · %s\n", r.DisplayName(), timefmt.FormatRelative(r.CreatedAt, now))
		fmt.Fprintln(c.out, indent(r.Content))
	}
	if t.Page.HasMore {
		fmt.Fprintln(c.out, "(more replies available)")
	}
}

func (c *cli) reply(ctx context.Context, args []string) error {
	fs := c.flags("reply")
	name := fs.String("name", "", "sign the reply with this name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: reply takes POST_ID and TEXT", errUsage)
	}
	if err := c.start(ctx); err != nil {
		return err
	}

	row, err := c.client.Actions.SubmitReply(ctx, actions.ReplyInput{
		PostID:  fs.Arg(0),
		Content: strings.Join(fs.Args()[1:], " "),
		Name:    *name,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Replied %s as %s.\n", row.ID, row.DisplayName())
	return nil
}

func (c *cli) undo(ctx context.Context) error {
	if err := c.start(ctx); err != nil {
		return err
	}
	id := ""
	if last := c.client.Store.GetState().LastSubmitted; last != nil {
		id = last.ID
	}
	if err := c.client.Actions.UndoLastSubmission(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted %s.\n", id)
	return nil
}

func (c *cli) state(ctx context.Context) error {
	if err := c.start(ctx); err != nil {
		// The state still shows why the client is unusable.
		fmt.Fprintln(c.out, "start failed:", models.UserMessage(err, err.Error()))
	}
	pp.ColoringEnabled = false
	_, err := pp.Fprintln(c.out, c.client.Store.GetState())
	return err
}

func (c *cli) whoami(ctx context.Context) error {
	if err := c.start(ctx); err != nil {
		return err
	}
	s := c.client.Store.GetState()
	fmt.Fprintln(c.out, s.UserID)
	if s.CooldownActive(c.now()) {
		fmt.Fprintf(c.out, "next post allowed %s\n", timefmt.FormatRelative(*s.CooldownEnd, c.now()))
	}
	return nil
}

func indent(text string) string {
	return "  " + strings.ReplaceAll(text, "\n", "\n  ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
