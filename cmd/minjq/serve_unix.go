//go:build !plan9

package main

import (
	"fmt"
	"io"
	"os/user"

	"9fans.net/go/plan9"
	"9fans.net/go/plan9/client"
	"github.com/knusbaum/go9p"
	"github.com/psilva261/minjq/logger"
)

var fsys *client.Fsys

// Init attaches to the browser's file server and, unless given on the
// command line, reads the page and its scripts from there.
func Init() (err error) {
	conn, err := client.DialService("opossum")
	if err != nil {
		if htm != "" {
			log.Printf("dial: %v, serving %v bytes of html", err, len(htm))
			return nil
		}
		return fmt.Errorf("dial: %w", err)
	}
	u, err := user.Current()
	if err != nil {
		return
	}
	fsys, err = conn.Attach(nil, u.Username, "")
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	if htm != "" || len(js) > 0 {
		log.Printf("not loading htm/js from service")
		return
	}
	bs, err := readFile("html")
	if err != nil {
		return
	}
	htm = string(bs)
	dfid, err := fsys.Open("js", plan9.OREAD)
	if err != nil {
		return
	}
	defer dfid.Close()
	ds, err := dfid.Dirreadall()
	if err != nil {
		return
	}
	for i := 0; i < len(ds); i++ {
		bs, err := readFile(fmt.Sprintf("js/%v.js", i))
		if err != nil {
			return err
		}
		js = append(js, string(bs))
	}
	return
}

func readFile(fn string) ([]byte, error) {
	fid, err := fsys.Open(fn, plan9.OREAD)
	if err != nil {
		return nil, fmt.Errorf("open %v: %w", fn, err)
	}
	defer fid.Close()
	bs, err := io.ReadAll(fid)
	if err != nil {
		return nil, fmt.Errorf("read %v: %w", fn, err)
	}
	return bs, nil
}

func stat() (ok bool) {
	if fsys == nil {
		return true
	}
	_, err := fsys.Stat("html")
	return err == nil
}

func post(srv go9p.Srv) (err error) {
	if service == "" {
		service = "minjq"
	}
	return go9p.PostSrv(service, srv)
}
