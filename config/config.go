package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"twitch-chat-viewer/comments"
)

// Config агрегирует значения конфигурации из переменных окружения.
type Config struct {
	Twitch   TwitchConfig
	Postgres PostgresConfig
	Filter   comments.RuleSet
	Schedule ScheduleConfig
}

// TwitchConfig содержит учётные данные и канал трансляции.
type TwitchConfig struct {
	Username   string
	OAuthToken string
	Channel    string
}

// Anonymous сообщает, что учётные данные не заданы и клиент подключается анонимно.
func (t TwitchConfig) Anonymous() bool {
	return t.Username == "" && t.OAuthToken == ""
}

// PostgresConfig хранит параметры подключения к базе настроек.
type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
	Timeout  time.Duration
}

// Enabled сообщает, что настройки хранятся в Postgres.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// DSN собирает строку подключения для pgx/pgxpool.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

// ScheduleConfig задаёт периодичность фоновых задач (cron-выражения).
type ScheduleConfig struct {
	ActivePoll        string
	PreferencesReload string
	ActiveWindow      time.Duration
}

// Load читает переменные окружения и возвращает валидированную Config.
func Load() (Config, error) {
	cfg := Config{
		Twitch: TwitchConfig{
			Username:   strings.TrimSpace(os.Getenv("TWITCH_USERNAME")),
			OAuthToken: strings.TrimSpace(os.Getenv("TWITCH_OAUTH_TOKEN")),
			Channel:    normalizeChannel(os.Getenv("TWITCH_CHANNEL")),
		},
		Schedule: ScheduleConfig{
			ActivePoll:        "@every 20s",
			PreferencesReload: "@every 30s",
			ActiveWindow:      comments.DefaultActiveWindow,
		},
	}

	if v := strings.TrimSpace(os.Getenv("ACTIVE_POLL_SCHEDULE")); v != "" {
		cfg.Schedule.ActivePoll = v
	}
	if v := strings.TrimSpace(os.Getenv("PREFERENCES_RELOAD_SCHEDULE")); v != "" {
		cfg.Schedule.PreferencesReload = v
	}

	var err error
	if cfg.Postgres, err = loadPostgres(); err != nil {
		return Config{}, err
	}
	if cfg.Schedule.ActiveWindow, err = envDuration("ACTIVE_WINDOW", cfg.Schedule.ActiveWindow); err != nil {
		return Config{}, err
	}
	if cfg.Filter, err = loadFilter(); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadPostgres читает только блок Postgres; используется командами редактирования настроек.
func LoadPostgres() (PostgresConfig, error) {
	pg, err := loadPostgres()
	if err != nil {
		return PostgresConfig{}, err
	}
	if !pg.Enabled() {
		return PostgresConfig{}, fmt.Errorf("требуется POSTGRES_HOST")
	}
	if err := pg.validate(); err != nil {
		return PostgresConfig{}, err
	}
	return pg, nil
}

func loadPostgres() (PostgresConfig, error) {
	pg := PostgresConfig{
		Host:     strings.TrimSpace(os.Getenv("POSTGRES_HOST")),
		Port:     strings.TrimSpace(os.Getenv("POSTGRES_PORT")),
		DB:       strings.TrimSpace(os.Getenv("POSTGRES_DB")),
		User:     strings.TrimSpace(os.Getenv("POSTGRES_USER")),
		Password: strings.TrimSpace(os.Getenv("POSTGRES_PASSWORD")),
	}

	var err error
	if pg.Timeout, err = envDuration("DB_TIMEOUT", 5*time.Second); err != nil {
		return PostgresConfig{}, err
	}
	return pg, nil
}

func loadFilter() (comments.RuleSet, error) {
	rs := comments.RuleSet{
		MutedUserIDs: splitAndTrim(os.Getenv("MUTE_USER_IDS")),
		MutedWords:   splitAndTrim(os.Getenv("MUTE_WORDS")),
	}

	var err error
	if rs.MuteUserIDsEnabled, err = envBool("MUTE_USER_IDS_ENABLED", len(rs.MutedUserIDs) > 0); err != nil {
		return comments.RuleSet{}, err
	}
	if rs.MuteWordsEnabled, err = envBool("MUTE_WORDS_ENABLED", len(rs.MutedWords) > 0); err != nil {
		return comments.RuleSet{}, err
	}
	if rs.SuppressEmotion, err = envBool("SUPPRESS_EMOTION", false); err != nil {
		return comments.RuleSet{}, err
	}
	if rs.ShowDebug, err = envBool("SHOW_DEBUG", false); err != nil {
		return comments.RuleSet{}, err
	}
	return rs, nil
}

func (c Config) validate() error {
	if c.Twitch.Channel == "" {
		return fmt.Errorf("требуется TWITCH_CHANNEL")
	}
	if (c.Twitch.Username == "") != (c.Twitch.OAuthToken == "") {
		return fmt.Errorf("TWITCH_USERNAME и TWITCH_OAUTH_TOKEN задаются вместе")
	}

	if c.Postgres.Enabled() {
		if err := c.Postgres.validate(); err != nil {
			return err
		}
	}

	if c.Schedule.ActivePoll == "" {
		return fmt.Errorf("Schedule.ActivePoll не должен быть пустым")
	}
	if c.Schedule.PreferencesReload == "" {
		return fmt.Errorf("Schedule.PreferencesReload не должен быть пустым")
	}
	if c.Schedule.ActiveWindow <= 0 {
		return fmt.Errorf("ACTIVE_WINDOW должен быть больше нуля")
	}

	return nil
}

func (p PostgresConfig) validate() error {
	if p.Port == "" {
		return fmt.Errorf("требуется POSTGRES_PORT")
	}
	if p.DB == "" {
		return fmt.Errorf("требуется POSTGRES_DB")
	}
	if p.User == "" {
		return fmt.Errorf("требуется POSTGRES_USER")
	}
	if p.Password == "" {
		return fmt.Errorf("требуется POSTGRES_PASSWORD")
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT должен быть больше нуля")
	}
	return nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func normalizeChannel(ch string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ch), "#")))
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
