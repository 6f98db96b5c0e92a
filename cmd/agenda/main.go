package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/cache"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/config"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/gateway"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/session"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/store/redistore"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/syncer"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/tui"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/web"
)

func main() {
	configPathFlag := flag.String("config", "", "config file path")
	addrFlag := flag.String("addr", "", "remote task store address")
	appFlag := flag.String("app", "", "application id prefix for store keys")
	cachePathFlag := flag.String("cache", "", "local snapshot cache path")
	webFlag := flag.Bool("web", false, "enable web server")
	webOnlyFlag := flag.Bool("web-only", false, "run web server only")
	portFlag := flag.Int("port", 0, "web server port")
	flag.Parse()

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	if *addrFlag != "" {
		cfg.StoreAddr = *addrFlag
	}
	if *appFlag != "" {
		cfg.AppID = *appFlag
	}
	if *cachePathFlag != "" {
		cfg.CachePath = *cachePathFlag
	}
	if cfg.AppID == "" {
		cfg.AppID = "mi-agenda"
	}
	if cfg.IdentityPath == "" {
		cfg.IdentityPath = filepath.Join(filepath.Dir(cfgPath), "identity.json")
	}
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(filepath.Dir(cfgPath), "agenda.db")
	}
	if *webFlag {
		cfg.WebEnabled = true
	}
	if *portFlag != 0 {
		cfg.WebPort = *portFlag
	}
	if cfg.WebPort == 0 {
		cfg.WebPort = 8080
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		log.Fatal(err)
	}

	if !cfg.Configured() {
		if *webOnlyFlag {
			log.Fatalf("store_addr not set in %s", cfgPath)
		}
		if err := tui.Run(context.Background(), tui.App{ConfigPath: cfgPath}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := redistore.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		log.Fatalf("task store %s unreachable: %v", cfg.StoreAddr, err)
	}

	mirror, err := openMirror(cfg.CachePath)
	if err != nil {
		log.Printf("snapshot cache unavailable: %v", err)
	}
	if mirror != nil {
		defer mirror.Close()
	}

	sess := session.Start(ctx, store, cfg.IdentityPath)
	defer sess.Close()

	sync := syncer.New(store, mirror)
	defer sync.Close()

	gw := gateway.New(store)

	if cfg.WebEnabled {
		addr := fmt.Sprintf(":%d", cfg.WebPort)
		handler := web.NewServer(sync, gw).Handler()
		if *webOnlyFlag {
			identity, ok := <-sess.Identities()
			if !ok {
				log.Fatal("anonymous sign-in failed")
			}
			gw.SetIdentity(identity.ID)
			sync.SetIdentity(ctx, identity.ID)
			log.Printf("Web server running at http://localhost%s", addr)
			log.Fatal(http.ListenAndServe(addr, handler))
		}

		go func() {
			log.Printf("Web server running at http://localhost%s", addr)
			if err := http.ListenAndServe(addr, handler); err != nil {
				log.Printf("web server error: %v", err)
			}
		}()
	} else if *webOnlyFlag {
		log.Fatal("-web-only requires the web server; pass -web or set web_enabled")
	}

	app := tui.App{
		Configured: true,
		ConfigPath: cfgPath,
		Gateway:    gw,
		Syncer:     sync,
		Session:    sess,
	}
	if err := tui.Run(ctx, app); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openMirror(path string) (*cache.Cache, error) {
	if err := config.EnsureDir(path); err != nil {
		return nil, err
	}
	return cache.Open(path)
}
