package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"twitch-chat-viewer/comments"
)

const (
	settingMuteUserIDs     = "mute_user_ids"
	settingMuteWords       = "mute_words"
	settingSuppressEmotion = "suppress_emotion"
	settingShowDebug       = "show_debug"
)

var schema = []string{
	`create table if not exists viewer_settings (
  name    text primary key,
  enabled boolean not null
);`,
	`create table if not exists muted_user_ids (
  position integer not null,
  user_id  text primary key
);`,
	`create table if not exists muted_words (
  position integer primary key,
  word     text not null
);`,
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Preferences хранит правила фильтрации чата в Postgres.
type Preferences struct {
	sender  batchSender
	timeout time.Duration
}

// NewPreferences создаёт репозиторий настроек поверх пула соединений.
func NewPreferences(pool *pgxpool.Pool, timeout time.Duration) *Preferences {
	return newPreferences(pool, timeout)
}

func newPreferences(sender batchSender, timeout time.Duration) *Preferences {
	return &Preferences{sender: sender, timeout: timeout}
}

// EnsureSchema создаёт таблицы настроек, если их ещё нет.
func (p *Preferences) EnsureSchema(ctx context.Context) error {
	dbCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	b := &pgx.Batch{}
	for _, q := range schema {
		b.Queue(q)
	}
	if err := p.sender.SendBatch(dbCtx, b).Close(); err != nil {
		return fmt.Errorf("preferences: create schema: %w", err)
	}
	return nil
}

type setting struct {
	name    string
	enabled bool
}

// Load читает правила. found == false, если настройки ещё ни разу не сохранялись.
func (p *Preferences) Load(ctx context.Context) (rs comments.RuleSet, found bool, err error) {
	dbCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	b := &pgx.Batch{}
	b.Queue(`select name, enabled from viewer_settings;`)
	b.Queue(`select user_id from muted_user_ids order by position;`)
	b.Queue(`select word from muted_words order by position;`)

	br := p.sender.SendBatch(dbCtx, b)
	defer br.Close()

	settings, err := collect(br, func(row pgx.CollectableRow) (setting, error) {
		var s setting
		err := row.Scan(&s.name, &s.enabled)
		return s, err
	})
	if err != nil {
		return comments.RuleSet{}, false, fmt.Errorf("preferences: load settings: %w", err)
	}
	if rs.MutedUserIDs, err = collect(br, pgx.RowTo[string]); err != nil {
		return comments.RuleSet{}, false, fmt.Errorf("preferences: load muted users: %w", err)
	}
	if rs.MutedWords, err = collect(br, pgx.RowTo[string]); err != nil {
		return comments.RuleSet{}, false, fmt.Errorf("preferences: load muted words: %w", err)
	}

	for _, s := range settings {
		switch s.name {
		case settingMuteUserIDs:
			rs.MuteUserIDsEnabled = s.enabled
		case settingMuteWords:
			rs.MuteWordsEnabled = s.enabled
		case settingSuppressEmotion:
			rs.SuppressEmotion = s.enabled
		case settingShowDebug:
			rs.ShowDebug = s.enabled
		}
	}

	return rs, len(settings) > 0, nil
}

// Save перезаписывает правила одним батчем.
func (p *Preferences) Save(ctx context.Context, rs comments.RuleSet) error {
	dbCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const upsertSetting = `
insert into viewer_settings (name, enabled) values ($1, $2)
on conflict (name) do update set enabled = excluded.enabled;`

	b := &pgx.Batch{}
	b.Queue(upsertSetting, settingMuteUserIDs, rs.MuteUserIDsEnabled)
	b.Queue(upsertSetting, settingMuteWords, rs.MuteWordsEnabled)
	b.Queue(upsertSetting, settingSuppressEmotion, rs.SuppressEmotion)
	b.Queue(upsertSetting, settingShowDebug, rs.ShowDebug)

	b.Queue(`delete from muted_user_ids;`)
	for i, id := range rs.MutedUserIDs {
		b.Queue(`insert into muted_user_ids (position, user_id) values ($1, $2) on conflict (user_id) do nothing;`, i, id)
	}
	b.Queue(`delete from muted_words;`)
	for i, w := range rs.MutedWords {
		b.Queue(`insert into muted_words (position, word) values ($1, $2);`, i, w)
	}

	if err := p.sender.SendBatch(dbCtx, b).Close(); err != nil {
		return fmt.Errorf("preferences: save: %w", err)
	}
	return nil
}

func collect[T any](br pgx.BatchResults, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, fn)
}
