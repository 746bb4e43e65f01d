package benchmark

import (
	"github.com/magicmatatjahu/adi"
)

type Config struct {
	Host string
	Port int
}

type Logger struct {
	Level string
}

type Database struct {
	Config *Config
	Logger *Logger
}

type Cache struct {
	Logger *Logger
}

type Repository struct {
	DB    *Database
	Cache *Cache
}

type Service struct {
	Repo   *Repository
	Logger *Logger
}

func newConfig() *Config                               { return &Config{Host: "localhost", Port: 8080} }
func newLogger() *Logger                               { return &Logger{Level: "info"} }
func newDatabase(cfg *Config, log *Logger) *Database   { return &Database{Config: cfg, Logger: log} }
func newCache(log *Logger) *Cache                      { return &Cache{Logger: log} }
func newRepository(db *Database, c *Cache) *Repository { return &Repository{DB: db, Cache: c} }
func newService(r *Repository, log *Logger) *Service   { return &Service{Repo: r, Logger: log} }

func adiChain() []adi.Provider {
	return []adi.Provider{
		adi.Constructor(adi.TypeOf[*Config](), newConfig),
		adi.Constructor(adi.TypeOf[*Logger](), newLogger),
		adi.Constructor(adi.TypeOf[*Database](), newDatabase),
		adi.Constructor(adi.TypeOf[*Cache](), newCache),
		adi.Constructor(adi.TypeOf[*Repository](), newRepository),
		adi.Constructor(adi.TypeOf[*Service](), newService),
	}
}
