package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Modes accepted in CHESS_MODE.
const (
	ModeSolo    = "solo"
	ModeBot     = "bot"
	ModeHost    = "host"
	ModeJoin    = "join"
	ModeLichess = "lichess"
)

type AppConfig struct {
	Mode string `yaml:"mode"`

	PeerAddr         string `yaml:"peer_addr"`
	PeerTransport    string `yaml:"peer_transport"`
	PeerWSPath       string `yaml:"peer_ws_path"`
	PeerColor        string `yaml:"peer_color"`
	PeerDialAttempts int    `yaml:"peer_dial_attempts"`

	EnginePath    string `yaml:"engine_path"`
	BotDepth      int    `yaml:"bot_depth"`
	BotDifficulty string `yaml:"bot_difficulty"`
	BotColor      string `yaml:"bot_color"`
	BotBookPath   string `yaml:"bot_book_path"`

	// ClockSec is the time per side for local games; zero plays untimed.
	ClockSec          int `yaml:"clock_sec"`
	ClockIncrementSec int `yaml:"clock_increment_sec"`
	// ResumePGN continues a solo or bot game from a PGN file.
	ResumePGN string `yaml:"resume_pgn"`

	LichessToken   string `yaml:"lichess_token"`
	LichessBaseURL string `yaml:"lichess_base_url"`
	LichessGameID  string `yaml:"lichess_game_id"`

	RedisURL      string `yaml:"redis_url"`
	DatabaseURL   string `yaml:"database_url"`
	ArchiveTTLSec int    `yaml:"archive_ttl_sec"`

	MsgcatDir string `yaml:"msgcat_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		Mode:             ModeSolo,
		PeerAddr:         "127.0.0.1:2308",
		PeerTransport:    "tcp",
		PeerWSPath:       "/peer",
		PeerColor:        "w",
		PeerDialAttempts: 5,
		BotDepth:         10,
		BotDifficulty:    "off",
		BotColor:         "b",
		LichessBaseURL:   "https://lichess.org",
		ArchiveTTLSec:    86400,
	}
}

// Load reads the optional YAML file named by CHESS_TUI_CONFIG, then the
// environment. Environment values win.
func Load() (*AppConfig, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CHESS_TUI_CONFIG")); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil { return fmt.Errorf("read config file: %w", err) }
	if err := yaml.Unmarshal(raw, cfg); err != nil { return fmt.Errorf("parse config file %s: %w", path, err) }
	return nil
}

func applyEnv(cfg *AppConfig) {
	setString(&cfg.Mode, "CHESS_MODE")

	setString(&cfg.PeerAddr, "PEER_ADDR")
	setString(&cfg.PeerTransport, "PEER_TRANSPORT")
	setString(&cfg.PeerWSPath, "PEER_WS_PATH")
	setString(&cfg.PeerColor, "PEER_COLOR")
	setPositiveInt(&cfg.PeerDialAttempts, "PEER_DIAL_ATTEMPTS")

	setString(&cfg.EnginePath, "ENGINE_PATH")
	setPositiveInt(&cfg.BotDepth, "BOT_DEPTH")
	setString(&cfg.BotDifficulty, "BOT_DIFFICULTY")
	setString(&cfg.BotColor, "BOT_COLOR")
	setString(&cfg.BotBookPath, "BOT_BOOK_PATH")

	setPositiveInt(&cfg.ClockSec, "CLOCK_SEC")
	setPositiveInt(&cfg.ClockIncrementSec, "CLOCK_INCREMENT_SEC")
	setString(&cfg.ResumePGN, "RESUME_PGN")

	setString(&cfg.LichessToken, "LICHESS_TOKEN")
	setString(&cfg.LichessBaseURL, "LICHESS_BASE_URL")
	setString(&cfg.LichessGameID, "LICHESS_GAME_ID")

	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setPositiveInt(&cfg.ArchiveTTLSec, "ARCHIVE_TTL_SEC")

	setString(&cfg.MsgcatDir, "MSGCAT_DIR")

	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.PeerTransport = strings.ToLower(strings.TrimSpace(cfg.PeerTransport))
	cfg.BotDifficulty = strings.ToLower(strings.TrimSpace(cfg.BotDifficulty))
	cfg.PeerColor = strings.ToLower(strings.TrimSpace(cfg.PeerColor))
	cfg.BotColor = strings.ToLower(strings.TrimSpace(cfg.BotColor))
}

func (c *AppConfig) Validate() error {
	switch c.Mode {
	case ModeSolo, ModeBot, ModeHost, ModeJoin, ModeLichess:
	default:
		return fmt.Errorf("unsupported CHESS_MODE %q", c.Mode)
	}
	if c.PeerTransport != "tcp" && c.PeerTransport != "ws" {
		return fmt.Errorf("unsupported PEER_TRANSPORT %q", c.PeerTransport)
	}
	if !validColor(c.PeerColor) {
		return fmt.Errorf("invalid PEER_COLOR %q", c.PeerColor)
	}
	if !validColor(c.BotColor) {
		return fmt.Errorf("invalid BOT_COLOR %q", c.BotColor)
	}
	if c.ClockSec < 0 || c.ClockIncrementSec < 0 {
		return errors.New("CLOCK_SEC and CLOCK_INCREMENT_SEC must not be negative")
	}
	if c.PeerAddr == "" {
		return errors.New("PEER_ADDR is required")
	}
	if c.Mode == ModeBot && c.EnginePath == "" {
		return errors.New("ENGINE_PATH is required in bot mode")
	}
	if c.Mode == ModeLichess {
		if c.LichessToken == "" {
			return errors.New("LICHESS_TOKEN is required in lichess mode")
		}
		if c.LichessGameID == "" {
			return errors.New("LICHESS_GAME_ID is required in lichess mode")
		}
	}
	return nil
}

func validColor(s string) bool {
	switch s {
	case "w", "b", "white", "black":
		return true
	}
	return false
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setPositiveInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
