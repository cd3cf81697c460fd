// Package jitter считает паузы между повторами с долей случайности,
// чтобы конкурирующие повторы (оформление заказа, переподключение LISTEN) не совпадали по времени.
package jitter

import (
	"math/rand/v2"
	"time"
)

// DefaultJitter - стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

// Duration возвращает d с джиттером в диапазоне [d, d*(1+jitterFactor)].
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	return DurationWithRand(d, jitterFactor, rand.Float64)
}

// DurationWithRand - как Duration, но с заданным источником случайности в [0, 1).
func DurationWithRand(d time.Duration, jitterFactor float64, float64n func() float64) time.Duration {
	if d <= 0 || jitterFactor <= 0 {
		return d
	}
	return d + time.Duration(float64n()*jitterFactor*float64(d))
}

// ExponentialBackoff возвращает паузу перед повтором номер attempt (с нуля):
// base*2^attempt, ограниченную max, плюс джиттер.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	backoff := base
	for i := 0; i < attempt && backoff < max; i++ {
		backoff *= 2
	}
	if backoff > max {
		backoff = max
	}
	return Duration(backoff, jitterFactor)
}
