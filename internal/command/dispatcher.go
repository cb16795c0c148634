// Package command matches chat messages against the bot's commands and
// runs their handlers.
package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/NomadCrew/oweather-bot/internal/text"
	"github.com/NomadCrew/oweather-bot/logger"
	"go.uber.org/zap"
)

const (
	CommandOWeather = "oweather"
	CommandForecast = "forecast"
	CommandHelp     = "help"
)

// Request is one matched command invocation.
type Request struct {
	Sender  string
	Message string
	// Args holds the pattern's captured argument.
	Args []string
}

// HandlerFunc runs a command. It must reply exactly once.
type HandlerFunc func(ctx context.Context, req Request, reply Replier) error

// RateLimiter throttles senders. It matches services.RateLimitService.
type RateLimiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type entry struct {
	spec    Spec
	re      *regexp.Regexp
	handler HandlerFunc
}

// Dispatcher routes messages to registered command handlers.
type Dispatcher struct {
	entries  []*entry
	renderer text.Renderer
	botName  string
	log      *zap.SugaredLogger
	metrics  *commandMetrics

	limiter     RateLimiter
	limit       int
	limitWindow time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRateLimiter allows each sender limit weather lookups per window.
func WithRateLimiter(limiter RateLimiter, limit int, window time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.limiter = limiter
		d.limit = limit
		d.limitWindow = window
	}
}

// NewDispatcher builds a dispatcher over specs. The help command is
// answered by the dispatcher itself.
func NewDispatcher(specs []Spec, renderer text.Renderer, botName string, opts ...DispatcherOption) (*Dispatcher, error) {
	d := &Dispatcher{
		renderer: renderer,
		botName:  botName,
		log:      logger.GetLogger().Named("command"),
		metrics:  newCommandMetrics(),
	}
	for _, spec := range specs {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", spec.Name, err)
		}
		d.entries = append(d.entries, &entry{spec: spec, re: re})
	}
	for _, opt := range opts {
		opt(d)
	}

	if _, ok := d.find(CommandHelp); ok {
		if err := d.Register(CommandHelp, d.help); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dispatcher) find(name string) (*entry, bool) {
	for _, e := range d.entries {
		if e.spec.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Register attaches a handler to a defined command.
func (d *Dispatcher) Register(name string, handler HandlerFunc) error {
	e, ok := d.find(name)
	if !ok {
		return fmt.Errorf("no command definition for %q", name)
	}
	if e.handler != nil {
		return fmt.Errorf("command %q already has a handler", name)
	}
	e.handler = handler
	return nil
}

// Specs lists the command definitions in declaration order.
func (d *Dispatcher) Specs() []Spec {
	specs := make([]Spec, 0, len(d.entries))
	for _, e := range d.entries {
		specs = append(specs, e.spec)
	}
	return specs
}

// Match returns the command a message would run, if any.
func (d *Dispatcher) Match(message string) (Spec, []string, bool) {
	message = strings.TrimSpace(message)
	for _, e := range d.entries {
		if e.handler == nil {
			continue
		}
		if m := e.re.FindStringSubmatch(message); m != nil {
			return e.spec, m[1:], true
		}
	}
	return Spec{}, nil, false
}

// Handle runs the command matching message and reports whether one matched.
// The handler's reply goes to reply, at most once.
func (d *Dispatcher) Handle(ctx context.Context, sender, message string, reply Replier) (bool, error) {
	spec, args, ok := d.Match(message)
	if !ok {
		return false, nil
	}
	e, _ := d.find(spec.Name)
	once := NewReplyOnce(reply)

	if spec.Name != CommandHelp && d.limiter != nil {
		allowed, retryAfter, err := d.limiter.CheckLimit(ctx, "command:"+sender, d.limit, d.limitWindow)
		switch {
		case err != nil:
			// Lookups go ahead when the limiter backend is unavailable.
			d.log.Warnw("Rate limiter unavailable", "sender", sender, "error", err)
		case !allowed:
			d.metrics.observe(spec.Name, outcomeRateLimited)
			seconds := int(retryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			return true, once.Reply(ctx, fmt.Sprintf("You are sending commands too fast. Try again in %s seconds.",
				d.renderer.Highlight(fmt.Sprint(seconds))))
		}
	}

	d.log.Debugw("Running command", "command", spec.Name, "sender", sender)
	req := Request{Sender: sender, Message: strings.TrimSpace(message), Args: args}
	if err := e.handler(ctx, req, once); err != nil {
		return true, fmt.Errorf("command %s: %w", spec.Name, err)
	}
	if !once.Replied() {
		d.log.Warnw("Command finished without a reply", "command", spec.Name, "sender", sender)
	}
	return true, nil
}

func (d *Dispatcher) help(ctx context.Context, req Request, reply Replier) error {
	topic := strings.ToLower(req.Args[0])
	e, ok := d.find(topic)
	if !ok || e.spec.Help == "" {
		d.metrics.observe(CommandHelp, outcomeNotFound)
		return reply.Reply(ctx, fmt.Sprintf("No help found on %s.", d.renderer.Highlight(req.Args[0])))
	}
	d.metrics.observe(CommandHelp, outcomeOK)
	body := strings.ReplaceAll(e.spec.Help, "<myname>", d.botName)
	return reply.Reply(ctx, d.renderer.MakeBlob("Help ("+e.spec.Name+")", body))
}
