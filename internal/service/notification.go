package service

import (
	"fmt"
	"io"
	"sync"

	"impact-registration/internal/logger"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level  Level
	Title  string
	Detail string
}

func (n Notification) String() string {
	if n.Detail == "" {
		return n.Title
	}
	return n.Title + ": " + n.Detail
}

// LogNotifier forwards notifications to the process logger
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	log := logger.WithComponent("notify")
	switch n.Level {
	case LevelError:
		log.Warn(n.Title, "detail", n.Detail)
	default:
		log.Info(n.Title, "level", string(n.Level), "detail", n.Detail)
	}
}

// WriterNotifier prints one line per notification
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (p *WriterNotifier) Notify(n Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	marker := "*"
	switch n.Level {
	case LevelSuccess:
		marker = "+"
	case LevelError:
		marker = "!"
	}
	fmt.Fprintf(p.w, "%s %s\n", marker, n)
}

// Recorder keeps every notification it receives
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Last returns the most recent notification, or the zero value
func (r *Recorder) Last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}
	}
	return r.all[len(r.all)-1]
}

func notify(n Notifier, level Level, title, detail string) {
	if n == nil {
		return
	}
	n.Notify(Notification{Level: level, Title: title, Detail: detail})
}
