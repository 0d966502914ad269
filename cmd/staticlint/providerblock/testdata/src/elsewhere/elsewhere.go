package elsewhere

import "time"

type slow struct{}

func (slow) Get() int {
	time.Sleep(time.Millisecond)
	return 0
}
