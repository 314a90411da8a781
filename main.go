package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/asdine/storm/v3"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/yaml.v2"

	"github.com/ixaxaar/gotank/onboard"
	"github.com/ixaxaar/gotank/onboard/hardware"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"TANK_DEVICE_ID" envDefault:"DEV"`
	JWT_SECRET string `env:"TANK_JWT_SECRET" envDefault:"xWumOlRfhu+LBi2F2e1yF4FiaopQ5mr8klL4fpILnlI="`
	DEBUG      bool   `env:"DEBUG" envDefault:"0"`
	SRCDIR     string `env:"SRCDIR" envDefault:"."`
	DB         *storm.DB
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	env.Parse(ENV)
}

func main() {
	configPath := flag.String("config", "", "path to the motors.yaml hardware layout")
	dbPath := flag.String("db", "", "path to the state database")
	port := flag.String("port", "0.0.0.0:8080", "Specify the ip:port to listen on")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := openDb(*dbPath)
	if err != nil {
		log.Fatalf("state db: %v", err)
	}
	ENV.DB = db
	defer ENV.DB.Close()

	out, err := hardware.OpenRPIOChannel()
	if err != nil {
		log.Fatalf("unable to open gpio: %v", err)
	}

	tank, err := onboard.NewTankController(out, config)
	if err != nil {
		log.Fatalf("unable to initialize tank: %v", err)
	}

	if err = onboard.RestoreGimbalPosition(db, tank); err != nil {
		log.Printf("gimbal position not restored: %v", err)
	}

	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	//---
	// Build the API routes
	//---
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", Login)

		r.Group(func(r chi.Router) {
			if !ENV.DEBUG {
				r.Use(ValidateJWT)
			} else {
				log.Print("Running in debug mode. Authentication disabled.")
			}

			r.Get("/refresh_token", JWTRefresh)

			r.Post("/move", MoveHandler(tank))
			r.Post("/stop", StopHandler(tank))
			r.Post("/estop", EmergencyStopHandler(tank))
			r.Post("/reset", ResetHandler(tank))
			r.Post("/gimbal", GimbalHandler(tank))
			r.Get("/state", StateHandler(tank))
		})
	})

	// Continuous-drive teleop socket
	r.Route("/ws", func(r chi.Router) {
		if !ENV.DEBUG {
			r.Use(ValidateJWT)
		}
		r.Get("/teleop", TeleopHandler(tank))
	})

	// Local development shell
	go startShell(tank)

	srv := &http.Server{Addr: *port, Handler: r}
	go func() {
		log.Printf("listening on %s", *port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Print("shutting down")
	srv.Close()

	if err := onboard.SaveGimbalPosition(ENV.DB, tank); err != nil {
		log.Printf("unable to save gimbal position: %v", err)
	}
	if err := tank.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func loadConfig(path string) (config onboard.TankConfig, err error) {
	if path == "" {
		path, err = filepath.Abs(ENV.SRCDIR + "/motors.yaml")
		if err != nil {
			return
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if err = yaml.Unmarshal(raw, &config); err != nil {
		return
	}

	err = config.Validate()
	return
}

func openDb(dbFile string) (db *storm.DB, err error) {
	if dbFile == "" {
		dbFile, _ = filepath.Abs("./tmp/tank.db")
		dir := filepath.Dir(dbFile)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			os.Mkdir(dir, 0755)
		}
	}

	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	if err := db.Init(&User{}); err != nil {
		return nil, err
	}
	if err := db.Init(&onboard.GimbalPosition{}); err != nil {
		return nil, err
	}

	return
}
