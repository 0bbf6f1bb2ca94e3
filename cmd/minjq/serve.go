package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/user"
	"strings"
	"sync"
	"time"

	"github.com/knusbaum/go9p/fs"
	"github.com/pkg/errors"
	"github.com/psilva261/minjq"
	"github.com/psilva261/minjq/logger"
	"github.com/psilva261/minjq/runner"
	"github.com/spf13/cobra"
)

var (
	d       *runner.Runner
	service string
	mtpt    string
	htm     string
	js      []string
	mu      sync.Mutex
)

func serveCmd() *cobra.Command {
	var htmlfile string

	cmd := &cobra.Command{
		Use:   "serve [-s service] [-H htmlfile] [jsfile ...]",
		Short: "Serve a 9p ctl file driving a page",
		Long: `Serve posts a file server with a single ctl file. Each connection
writes one command:

  start          execute the scripts and return the page if it changed
  click\n<sel>   click the first element matching sel
  stop           stop the event loop

Without -H the page and its scripts are fetched from the browser's
file server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if htmlfile != "" {
				b, err := os.ReadFile(htmlfile)
				if err != nil {
					return errors.Wrap(err, "read html")
				}
				htm = string(b)
			}
			for _, fn := range args {
				b, err := os.ReadFile(fn)
				if err != nil {
					return errors.Wrapf(err, "read %v", fn)
				}
				js = append(js, string(b))
			}
			if err := Init(); err != nil {
				return errors.Wrap(err, "init")
			}
			if err := Main(); err != nil {
				return errors.Wrap(err, "main")
			}
			select {}
		},
	}

	cmd.Flags().StringVarP(&service, "service", "s", "", "service name to post")
	cmd.Flags().StringVarP(&htmlfile, "html", "H", "", "html file")

	return cmd
}

func Main() (err error) {
	u, err := user.Current()
	if err != nil {
		return fmt.Errorf("get user: %v", err)
	}
	un := u.Username
	gn, err := minjq.Group(u)
	if err != nil {
		return fmt.Errorf("get group: %v", err)
	}

	fsys, root := fs.NewFS(un, gn, 0500)
	c := fs.NewListenFile(fsys.NewStat("ctl", un, gn, 0600))
	root.AddChild(c)
	lctl := (*fs.ListenFileListener)(c)
	go AssertParent()
	go Ctl(lctl)
	log.Printf("post fs at %v...", minjq.PathPrefix)
	return post(fsys.Server())
}

// AssertParent exits once the page source goes away.
func AssertParent() {
	for {
		<-time.After(time.Second)
		if !stat() {
			os.Exit(1)
		}
	}
}

func Ctl(lctl *fs.ListenFileListener) {
	for {
		conn, err := lctl.Accept()
		if err != nil {
			log.Printf("accept: %v", err)
			continue
		}
		go ctl(conn)
	}
}

func ctl(conn net.Conn) {
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	defer conn.Close()

	l, err := r.ReadString('\n')
	if err != nil {
		log.Errorf("ctl: read string: %v", err)
		return
	}

	mu.Lock()
	defer mu.Unlock()

	switch l = strings.TrimSpace(l); l {
	case "start":
		if d != nil {
			d.Stop()
		}
		if d, err = runner.New(htm); err != nil {
			log.Errorf("start: %v", err)
			return
		}
		d.Start()
		if err := load(d, append(d.PageScripts(), js...)); err != nil {
			log.Errorf("start: %v", err)
			return
		}
		h, changed, err := d.TrackChanges()
		reply(w, h, changed, err)
	case "click":
		sel, err := r.ReadString('\n')
		if err != nil {
			log.Errorf("click: read string: %v", err)
			return
		}
		if d == nil {
			log.Errorf("click: not started")
			return
		}
		h, changed, err := d.TriggerClick(strings.TrimSpace(sel))
		reply(w, h, changed, err)
	case "stop":
		if d != nil {
			d.Stop()
			d = nil
		}
	default:
		log.Errorf("unknown cmd %q", l)
	}
}

func reply(w *bufio.Writer, resHtm string, changed bool, err error) {
	if err != nil {
		log.Errorf("track changes: %v", err)
		return
	}
	log.Printf("changed = %v", changed)
	if changed {
		w.WriteString(resHtm)
		w.Flush()
	}
}
