// Package runner executes page scripts against a dom.Document on a
// single event loop, with the jq library bound to the global $.
package runner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/psilva261/minjq/dom"
	"github.com/psilva261/minjq/jq"
	"github.com/psilva261/minjq/logger"
	"github.com/psilva261/sparkle/console"
	"github.com/psilva261/sparkle/eventloop"
	"github.com/psilva261/sparkle/js"
	"github.com/psilva261/sparkle/js/parser"
	"github.com/psilva261/sparkle/require"
)

// ModuleName is served by require() and resolves to $.
const ModuleName = "minjq"

func init() {
	require.RegisterNativeModule(ModuleName, func(vm *js.Runtime, module *js.Object) {
		if err := module.Set("exports", vm.Get("$")); err != nil {
			log.Errorf("require %v: %v", ModuleName, err)
		}
	})
}

type Runner struct {
	// Timeout bounds a single Exec.
	Timeout time.Duration
	// Settle is how long TrackChanges waits for further mutations.
	Settle time.Duration

	loop     *eventloop.EventLoop
	html     string
	doc      *dom.Document
	q        *jq.Query
	vm       *js.Runtime
	handlers map[*js.Object]jq.Handler
}

// New parses html. Call Start before executing scripts.
func New(html string) (r *Runner, err error) {
	doc, err := dom.Parse(html)
	if err != nil {
		return nil, fmt.Errorf("new runner: %w", err)
	}
	r = &Runner{
		Timeout:  10 * time.Second,
		Settle:   100 * time.Millisecond,
		html:     html,
		doc:      doc,
		handlers: make(map[*js.Object]jq.Handler),
	}
	return
}

func (r *Runner) Document() *dom.Document {
	return r.doc
}

func (r *Runner) Start() {
	log.Printf("Start event loop")
	r.loop = eventloop.NewEventLoop()
	r.q = jq.New(r.doc, jq.WithScheduler(&loopScheduler{loop: r.loop}))
	r.loop.Start()
	log.Printf("event loop started")
}

func (r *Runner) Stop() {
	if r.loop != nil {
		r.loop.Stop()
	}
	for len(r.doc.Mutations()) > 0 {
		<-r.doc.Mutations()
	}
}

// PageScripts returns the inline scripts of the page in document order.
func (r *Runner) PageScripts() (scripts []string) {
	els, err := r.doc.QuerySelectorAll("script:not([src])")
	if err != nil {
		log.Errorf("page scripts: %v", err)
		return
	}
	for _, el := range els {
		switch t := el.GetAttribute("type"); t {
		case "", "text/javascript", "application/javascript", "module":
			scripts = append(scripts, el.TextContent())
		default:
			log.Printf("skip script of type %v", t)
		}
	}
	return
}

func (r *Runner) initVM(vm *js.Runtime) (err error) {
	r.vm = vm
	vm.SetParserOptions(parser.WithDisableSourceMaps)
	vm.SetFieldNameMapper(js.TagFieldNameMapper("json", true))
	console.Enable(vm)
	if err = vm.Set("document", r.doc.Element()); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	if err = vm.Set("window", r.doc.Window()); err != nil {
		return fmt.Errorf("set window: %w", err)
	}
	if err = vm.Set("$", r.dollar()); err != nil {
		return fmt.Errorf("set $: %w", err)
	}
	return
}

var (
	reCompatCommentOpen  = regexp.MustCompile(`^\s*<!--`)
	reCompatCommentClose = regexp.MustCompile(`-->\s*$`)
)

// Exec runs script on the loop and returns its completion value. The
// initial call sets up the globals.
func (r *Runner) Exec(script string, initial bool) (res string, err error) {
	script = reCompatCommentOpen.ReplaceAllString(script, "//")
	script = reCompatCommentClose.ReplaceAllString(script, "//")

	resCh := make(chan string, 1)
	errCh := make(chan error, 1)

	r.loop.RunOnLoop(func(vm *js.Runtime) {
		defer func() {
			if rc := recover(); rc != nil {
				errCh <- fmt.Errorf("run program: panic: %v", rc)
			}
		}()
		if initial {
			if err := r.initVM(vm); err != nil {
				errCh <- fmt.Errorf("init vm: %w", err)
				return
			}
		}
		vv, err := vm.RunString(script)
		if err != nil {
			IntrospectError(err, script)
			errCh <- fmt.Errorf("run program: %w", err)
			return
		}
		resCh <- vv.String()
	})

	select {
	case err := <-errCh:
		return "", err
	case res := <-resCh:
		return res, nil
	case <-time.After(r.Timeout):
		return "", fmt.Errorf("timeout")
	}
}

// IntrospectError logs the lines around the position reported in err.
func IntrospectError(err error, script string) {
	prefix := "Line "
	i := strings.Index(err.Error(), prefix)
	if i < 0 {
		return
	}
	s := err.Error()[i+len(prefix):]
	yx := strings.Split(strings.Split(s, " ")[0], ":")
	y, _ := strconv.Atoi(yx[0])
	lines := strings.Split(script, "\n")
	if y < 1 || y > len(lines) {
		return
	}
	for j := y - 2; j <= y; j++ {
		if j >= 0 && j < len(lines) && len(lines[j]) < 120 {
			log.Printf("%v: %v", j+1, lines[j])
		}
	}
}

func (r *Runner) onLoop(f func() error) error {
	errCh := make(chan error, 1)
	r.loop.RunOnLoop(func(*js.Runtime) {
		errCh <- f()
	})
	select {
	case err := <-errCh:
		return err
	case <-time.After(r.Timeout):
		return fmt.Errorf("timeout")
	}
}

// CloseDoc finishes loading, which fires DOMContentLoaded and $.ready
// callbacks.
func (r *Runner) CloseDoc() (err error) {
	log.Printf("close doc")
	return r.onLoop(func() error {
		r.doc.Close()
		return nil
	})
}

// TriggerClick clicks the first element matching selector and returns
// the resulting html if the page changed.
func (r *Runner) TriggerClick(selector string) (newHTML string, changed bool, err error) {
	err = r.onLoop(func() error {
		el, err := r.doc.QuerySelector(selector)
		if err != nil {
			return err
		}
		if el == nil {
			return fmt.Errorf("could not find '%v'", selector)
		}
		el.Click()
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return r.TrackChanges()
}

// HTML renders the document on the loop.
func (r *Runner) HTML() (h string, err error) {
	err = r.onLoop(func() error {
		h = r.doc.Render()
		return nil
	})
	return
}

// TrackChanges drains the mutation feed until it stays quiet for Settle.
// Inserted inline scripts get executed.
func (r *Runner) TrackChanges() (html string, changed bool, err error) {
outer:
	for {
		select {
		case m := <-r.doc.Mutations():
			changed = true
			if m.Type != dom.Insert && m.Type != dom.Mv || strings.ToLower(m.Tag) != "script" {
				continue
			}
			if _, ok := m.Node["src"]; ok {
				log.Printf("skip external script %v", m.Node["src"])
				continue
			}
			if s := m.Node["innerHTML"]; strings.TrimSpace(s) != "" {
				if _, err := r.Exec(s, false); err != nil {
					log.Errorf("exec inserted script: %v", err)
				}
			}
		case <-time.After(r.Settle):
			break outer
		}
	}
	if changed {
		html, err = r.HTML()
	}
	return
}

// loopScheduler runs timer callbacks on the event loop.
type loopScheduler struct {
	loop *eventloop.EventLoop
}

type loopTimer struct {
	t       *time.Timer
	stopped bool
}

// Stop must be called on the loop.
func (t *loopTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return t.t.Stop()
}

func (s *loopScheduler) AfterFunc(d time.Duration, f func()) jq.Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		s.loop.RunOnLoop(func(*js.Runtime) {
			if !lt.stopped {
				f()
			}
		})
	})
	return lt
}
