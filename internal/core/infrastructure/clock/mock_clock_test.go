package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewMockClock(start)

	c.Advance(90 * time.Second)

	assert.Equal(t, start.Add(90*time.Second), c.Now())
	assert.Equal(t, 90*time.Second, c.Since(start))
}

func TestSystemClock_Monotonic(t *testing.T) {
	c := NewSystemClock()
	before := c.Now()
	assert.GreaterOrEqual(t, c.Since(before), time.Duration(0))
}

func TestMockClock_TickerFiresOnAdvance(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ticker := c.NewTicker(10 * time.Second)

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("未到周期不应触发")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case at := <-ticker.C():
		assert.Equal(t, time.Unix(10, 0), at)
	default:
		t.Fatal("到期应触发")
	}

	// 一次跨越多个周期只缓冲一拍
	c.Advance(35 * time.Second)
	<-ticker.C()
	select {
	case <-ticker.C():
		t.Fatal("多余节拍应被丢弃")
	default:
	}

	assert.Equal(t, 1, c.Tickers())
	ticker.Stop()
	assert.Zero(t, c.Tickers())
	c.Advance(time.Minute)
	select {
	case <-ticker.C():
		t.Fatal("停止后不应触发")
	default:
	}
}
