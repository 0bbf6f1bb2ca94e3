package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/knusbaum/go9p"
	"github.com/psilva261/minjq"
	"github.com/psilva261/minjq/logger"
)

// Init reads the page and its scripts from the browser's mount point
// unless given on the command line.
func Init() (err error) {
	mtpt = "/mnt/mycel"
	if htm != "" || len(js) > 0 {
		log.Printf("not loading htm/js from mtpt")
		return
	}
	bs, err := os.ReadFile(mtpt + "/html")
	if err != nil {
		return
	}
	htm = string(bs)
	ds, err := os.ReadDir(mtpt + "/js")
	if err != nil {
		return
	}
	for i := 0; i < len(ds); i++ {
		bs, err := os.ReadFile(fmt.Sprintf(mtpt+"/js/%v.js", i))
		if err != nil {
			return fmt.Errorf("read all: %w", err)
		}
		js = append(js, string(bs))
	}
	return
}

func stat() (ok bool) {
	_, err := os.Stat(mtpt)
	return err == nil
}

func post(srv go9p.Srv) (err error) {
	f1, f2, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("pipe: %w", err)
	}

	go func() {
		if err := go9p.ServeReadWriter(f1, f1, srv); err != nil {
			log.Errorf("serve rw: %v", err)
		}
	}()

	if err = syscall.Mount(int(f2.Fd()), -1, minjq.PathPrefix, syscall.MCREATE, ""); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	return
}
