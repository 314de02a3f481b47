// Package prefs provides the lyrics options snapshot taken at the start of
// each fetch.
package prefs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "prefs").Logger()
	return &l
}

// Hash fields of the persisted preferences.
const (
	FieldSource       = "source"
	FieldFallback     = "fallback"
	FieldRomanization = "romanization"
)

// Store returns an immutable options snapshot. Options never change during
// a fetch; callers take a new snapshot for the next one.
type Store interface {
	Snapshot(ctx context.Context) (lyrics.Options, error)
}

// StaticStore always returns the same options.
type StaticStore struct {
	opts lyrics.Options
}

// NewStaticStore 创建固定配置的偏好存储
func NewStaticStore(opts lyrics.Options) *StaticStore {
	return &StaticStore{opts: opts}
}

func (s *StaticStore) Snapshot(ctx context.Context) (lyrics.Options, error) {
	return s.opts, nil
}

// hashClient is the subset of the redis wrapper the store needs.
type hashClient interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, values ...interface{}) error
}

// RedisStore reads preferences from a Redis hash. Fields that are missing or
// invalid keep their default values.
type RedisStore struct {
	client   hashClient
	key      string
	defaults lyrics.Options
}

// NewRedisStore 创建基于Redis哈希的偏好存储
func NewRedisStore(client hashClient, key string, defaults lyrics.Options) *RedisStore {
	return &RedisStore{client: client, key: key, defaults: defaults}
}

func (s *RedisStore) Snapshot(ctx context.Context) (lyrics.Options, error) {
	fields, err := s.client.HGetAll(ctx, s.key)
	if err != nil {
		return s.defaults, fmt.Errorf("failed to read preferences %s: %w", s.key, err)
	}
	return parseFields(fields, s.defaults), nil
}

// Save 写入偏好设置
func (s *RedisStore) Save(ctx context.Context, opts lyrics.Options) error {
	err := s.client.HSet(ctx, s.key,
		FieldSource, string(opts.Source),
		FieldFallback, strconv.FormatBool(opts.Fallback),
		FieldRomanization, strconv.FormatBool(opts.Romanization),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences %s: %w", s.key, err)
	}
	return nil
}

func parseFields(fields map[string]string, defaults lyrics.Options) lyrics.Options {
	opts := defaults

	if v, ok := fields[FieldSource]; ok {
		if source, err := lyrics.ParseSource(v); err == nil {
			opts.Source = source
		} else {
			logger().Warn().Str("value", v).Msg("Ignoring invalid source preference")
		}
	}
	if v, ok := fields[FieldFallback]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			opts.Fallback = b
		}
	}
	if v, ok := fields[FieldRomanization]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			opts.Romanization = b
		}
	}
	return opts
}
