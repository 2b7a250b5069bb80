package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// queryParser reads optional query parameters and collects per-field errors.
type queryParser struct {
	c      *gin.Context
	fields map[string]string
}

func newQueryParser(c *gin.Context) *queryParser {
	return &queryParser{c: c}
}

func (p *queryParser) fail(name, msg string) {
	if p.fields == nil {
		p.fields = make(map[string]string)
	}
	p.fields[name] = msg
}

func (p *queryParser) String(name string) string {
	return strings.TrimSpace(p.c.Query(name))
}

func (p *queryParser) Int(name string, min int) *int {
	raw := p.String(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		p.fail(name, name+" must be an integer of at least "+strconv.Itoa(min))
		return nil
	}
	return &v
}

func (p *queryParser) Int64(name string) *int64 {
	raw := p.String(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		p.fail(name, name+" must be a positive integer")
		return nil
	}
	return &v
}

// Time accepts RFC 3339 or a plain date. A plain date used as an upper bound
// covers the whole day.
func (p *queryParser) Time(name string, endOfDay bool) *time.Time {
	raw := p.String(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		p.fail(name, name+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

// Errors returns the collected field errors, or nil.
func (p *queryParser) Errors() map[string]string {
	return p.fields
}
