package service

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Console is the terminal front end of the pages: navigation is remembered
// and notifications are printed.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	logger zerolog.Logger
	path   string
}

// NewConsole writes notifications to out.
func NewConsole(out io.Writer, logger zerolog.Logger) *Console {
	return &Console{out: out, logger: logger}
}

// Navigate records the current route.
func (c *Console) Navigate(path string) {
	c.mu.Lock()
	c.path = path
	c.mu.Unlock()
	c.logger.Debug().Str("route", path).Msg("navigate")
}

// Location returns the last route navigated to.
func (c *Console) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Success prints a confirmation.
func (c *Console) Success(message string) {
	c.print("✓", message)
}

// Error prints a failure.
func (c *Console) Error(message string) {
	c.print("✗", message)
}

func (c *Console) print(mark, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.out, "%s %s\n", mark, message); err != nil {
		c.logger.Warn().Err(err).Msg("write notification")
	}
}
