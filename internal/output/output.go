// Package output prints deployment runs to a terminal.
package output

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"deployer-backend/internal/deploy"
	"deployer-backend/internal/model"
)

// Colors for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// Output writes log events and summaries.
type Output struct {
	mu         sync.Mutex
	w          io.Writer
	useColor   bool
	timestamps bool
}

// New creates a new output handler with color enabled.
func New(w io.Writer) *Output {
	return &Output{
		w:        w,
		useColor: true,
	}
}

// SetColor enables or disables color output.
func (o *Output) SetColor(enabled bool) {
	o.useColor = enabled
}

// SetTimestamps prefixes every event with its time of day.
func (o *Output) SetTimestamps(enabled bool) {
	o.timestamps = enabled
}

func (o *Output) color(c, s string) string {
	if !o.useColor {
		return s
	}
	return c + s + colorReset
}

func (o *Output) printf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, format, args...)
}

// Sink returns a deploy.Sink printing every event.
func (o *Output) Sink() deploy.Sink {
	return o.Event
}

// Event prints one log event, colored by kind.
func (o *Output) Event(ev model.LogEvent) {
	msg := ev.Message
	switch ev.Kind {
	case model.LogError:
		msg = o.color(colorRed, msg)
	case model.LogSuccess:
		msg = o.color(colorGreen, msg)
	}
	if o.timestamps {
		o.printf("%s %s\n", o.color(colorGray, ev.Timestamp.Format("15:04:05")), msg)
		return
	}
	o.printf("%s\n", msg)
}

// RunStart prints a banner for a run.
func (o *Output) RunStart(kind, project string, server model.ServerConfig) {
	o.printf("\n%s %s %s\n", o.color(colorBold, kind), project,
		o.color(colorGray, fmt.Sprintf("(%s@%s:%d)", server.Username, server.Host, server.Port)))
}

// RunEnd prints the final status line of a run.
func (o *Output) RunEnd(err error, elapsed time.Duration) {
	took := o.color(colorGray, fmt.Sprintf("(%.2fs)", elapsed.Seconds()))
	out := deploy.OutcomeOf(err)
	if out.Success {
		o.printf("\n%s %s\n", o.color(colorGreen, "✓ succeeded"), took)
		return
	}
	where := ""
	if out.Phase != "" {
		where = fmt.Sprintf(" in %s", out.Phase)
	}
	o.printf("\n%s %s\n", o.color(colorRed, "✗ failed"+where), took)
}

// Servers prints a table of servers.
func (o *Output) Servers(servers []model.ServerConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tUSER\tAUTH\tGROUP")
	for _, s := range servers {
		fmt.Fprintf(tw, "%s\t%s\t%s:%d\t%s\t%s\t%s\n", s.ID, s.Name, s.Host, s.Port, s.Username, s.AuthType, s.GroupID)
	}
	tw.Flush()
}

// Projects prints a table of projects.
func (o *Output) Projects(projects []model.DeployConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSERVER\tREMOTE PATH\tUPLOAD")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", p.ID, p.ProjectName, p.ProjectType, p.ServerID, p.RemotePath, p.UploadEnabled())
	}
	tw.Flush()
}
