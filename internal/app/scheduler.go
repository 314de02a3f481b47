package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Camel-bot/Spotilife/internal/ipc"
	"github.com/Camel-bot/Spotilife/pkg/lyrics"
)

const (
	// 提前显示歌词的时间
	leadTime = 100 * time.Millisecond
	// 最后一行之后多久认为歌曲结束
	endGrace     = 5 * time.Second
	tickInterval = 50 * time.Millisecond
)

// getLyricIndexAtTime returns the index of the last line starting at or
// before ms, or -1 before the first line.
func getLyricIndexAtTime(lines []lyrics.Line, ms int64) int {
	if len(lines) == 0 || ms < lines[0].OffsetMs {
		return -1
	}

	// 二分查找
	left, right := 0, len(lines)-1
	result := -1
	for left <= right {
		mid := (left + right) / 2
		if lines[mid].OffsetMs <= ms {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}

func (a *App) stopScheduler() {
	a.schedulerMutex.Lock()
	defer a.schedulerMutex.Unlock()

	if a.schedulerCancel != nil {
		log.Info().Msg("Stopping previous lyric scheduler")
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
}

// startLyricScheduler broadcasts the active line of a synced result as the
// player position advances. getCurrentTime reports seconds.
func (a *App) startLyricScheduler(lines []lyrics.Line, getCurrentTime func() float64) {
	a.stopScheduler()

	if len(lines) == 0 {
		log.Warn().Msg("No lyrics lines to schedule")
		return
	}

	a.schedulerMutex.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	a.schedulerMutex.Unlock()

	log.Info().Int("lines_count", len(lines)).Msg("Starting lyric scheduler")

	go func() {
		defer log.Info().Msg("Lyric scheduler stopped")

		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		lastIndex := -2 // 确保第一次广播
		last := lines[len(lines)-1].OffsetMs

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			// 每次都重新获取播放器时间，避免累积误差
			seconds := getCurrentTime()
			if seconds < 0 {
				log.Warn().Float64("player_time", seconds).Msg("Invalid player time")
				continue
			}
			now := int64(seconds * 1000)

			index := a.tick(lines, now, lastIndex)
			lastIndex = index

			if now > last+endGrace.Milliseconds() {
				log.Info().Int64("current_ms", now).Int64("last_lyric_ms", last).Msg("Song finished")
				return
			}
		}
	}()
}

// tick broadcasts the line active at now if it differs from lastIndex and
// returns the new index.
func (a *App) tick(lines []lyrics.Line, now int64, lastIndex int) int {
	index := getLyricIndexAtTime(lines, now+leadTime.Milliseconds())
	if index == lastIndex {
		return index
	}

	if index < 0 {
		// 第一句歌词之前
		a.publisher.Broadcast(ipc.LineMessage(-1, lyrics.NoLyricsNote))
		return index
	}

	line := lines[index]
	log.Debug().
		Int("index", index).
		Int64("player_ms", now).
		Int64("lyric_ms", line.OffsetMs).
		Str("lyric", line.Content).
		Msg("Broadcasting lyric")
	a.publisher.Broadcast(ipc.LineMessage(index, line.Content))
	return index
}
