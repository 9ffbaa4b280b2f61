// Package output renders command results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"campusfeed/internal/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Color styles for terminal output
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")
	colorLike    = lipgloss.Color("#EC4899")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	likeStyle    = lipgloss.NewStyle().Foreground(colorLike)
	cardStyle    = lipgloss.NewStyle().PaddingLeft(2)
)

// Printer writes styled lines to w.
type Printer struct {
	w io.Writer
}

// New creates a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprint(p.w, successStyle.Render("✓ "))
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprint(p.w, warningStyle.Render("⚠ "))
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Error prints an error message
func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprint(p.w, errorStyle.Render("✗ "))
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Info prints an info message
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprint(p.w, infoStyle.Render("ℹ "))
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Muted prints a muted message
func (p *Printer) Muted(format string, args ...interface{}) {
	fmt.Fprintln(p.w, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Primary prints a primary message
func (p *Printer) Primary(format string, args ...interface{}) {
	fmt.Fprintln(p.w, primaryStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a section header
func (p *Printer) Section(title string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, primaryStyle.Render(title))
	fmt.Fprintln(p.w, mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
}

// JSON prints v as indented JSON.
func (p *Printer) JSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(b))
	return err
}

func timestamp(t time.Time) string {
	return t.Local().Format("Jan 2 15:04")
}

// Post prints a feed card. viewer decides the liked marker.
func (p *Printer) Post(post *models.Post, viewer string) {
	header := fmt.Sprintf("@%s · %s · #%d", post.User, timestamp(post.CreatedAt), post.ID)
	if post.EditedAt != nil {
		header += " (edited)"
	}
	fmt.Fprintln(p.w)
	p.Primary("%s", header)

	var body []string
	if post.Text != "" {
		body = append(body, post.Text)
	}
	if post.Image != "" {
		body = append(body, mutedStyle.Render("[image attached]"))
	}

	heart := "♡"
	if viewer != "" && post.LikedByUser(viewer) {
		heart = "♥"
	}
	body = append(body, likeStyle.Render(fmt.Sprintf("%s %d", heart, len(post.LikedBy)))+
		mutedStyle.Render(fmt.Sprintf("  💬 %d", len(post.Comments))))
	fmt.Fprintln(p.w, cardStyle.Render(strings.Join(body, "\n")))
}

// PostDetail prints a post with its comments.
func (p *Printer) PostDetail(post *models.Post, viewer string) {
	p.Post(post, viewer)
	if len(post.LikedBy) > 0 {
		p.Muted("  liked by %s", strings.Join(post.LikedBy, ", "))
	}
	for _, c := range post.Comments {
		fmt.Fprintln(p.w, cardStyle.Render(fmt.Sprintf("%s %s %s",
			infoStyle.Render("@"+c.User), c.Text, mutedStyle.Render(timestamp(c.At)))))
	}
}

// Feed prints posts, or a hint when there are none.
func (p *Printer) Feed(posts []*models.Post, viewer, empty string) {
	if len(posts) == 0 {
		p.Muted("%s", empty)
		return
	}
	for _, post := range posts {
		p.Post(post, viewer)
	}
}

// Stats prints the three profile counters.
func (p *Printer) Stats(s models.Stats) {
	fmt.Fprintf(p.w, "%s posts   %s likes   %s comments\n",
		primaryStyle.Render(fmt.Sprint(s.Posts)),
		primaryStyle.Render(fmt.Sprint(s.Likes)),
		primaryStyle.Render(fmt.Sprint(s.Comments)))
}

// MarketItem prints a catalog entry with its saved marker.
func (p *Printer) MarketItem(item models.MarketItem, saved bool) {
	mark := "☆"
	if saved {
		mark = successStyle.Render("★")
	}
	fmt.Fprintf(p.w, "%s %s %s  %s\n", mark, mutedStyle.Render(item.ID), item.Title, primaryStyle.Render(item.Price))
	if item.Desc != "" {
		fmt.Fprintln(p.w, cardStyle.Render(mutedStyle.Render(item.Desc)))
	}
}
