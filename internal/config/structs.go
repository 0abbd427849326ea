package config

import (
	"github.com/silkcms/silk-admin/internal/logger"
)

// Bootstrap holds the reserved administrator account created at seed time.
type Bootstrap struct {
	Name     string
	Email    string
	Password string
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Bootstrap Bootstrap
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver, used to build absolute image urls
	UploadDir      string // directory where uploaded images are stored
}
