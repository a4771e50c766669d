package config

import (
	"time"
)

type Server struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8000"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[currex]"`
}

type DB struct {
	Path string `envconfig:"PATH" default:"database.db"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"currex:"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"5s"`
}

type Feed struct {
	URL         string        `envconfig:"URL" default:"http://www.cbr.ru/scripts/XML_daily.asp"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
}

type Cache struct {
	TTL time.Duration `envconfig:"TTL" default:"1h"`
}

type Preload struct {
	Days       int      `envconfig:"DAYS" default:"180"`
	Currencies []string `envconfig:"CURRENCIES" default:"USD,EUR,GBP,CNY,JPY"`
}

type CORS struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"http://localhost:3000"`
}

type App struct {
	Env     string   `envconfig:"APP_ENV" default:"development"`
	Server  *Server  `envconfig:"SERVER"`
	Log     *Log     `envconfig:"LOG"`
	DB      *DB      `envconfig:"DATABASE"`
	Redis   *Redis   `envconfig:"REDIS"`
	Feed    *Feed    `envconfig:"FEED"`
	Cache   *Cache   `envconfig:"CACHE"`
	Preload *Preload `envconfig:"PRELOAD"`
	CORS    *CORS    `envconfig:"CORS"`
}
