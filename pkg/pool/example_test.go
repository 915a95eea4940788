package pool_test

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/slotpool/pkg/pool"
)

func Example() {
	p, err := pool.New(4,
		pool.Constructor(func() *bytes.Buffer { return new(bytes.Buffer) }),
		pool.WithName("buffers"),
		pool.WithoutExpansion(),
		pool.WithLogger(zap.NewNop()),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Cleanup()

	buf, ok := p.Acquire()
	if !ok {
		return
	}
	buf.WriteString("hello")
	fmt.Println(buf.String())

	buf.Reset()
	fmt.Println(p.Release(buf))

	stats := p.Stats()
	fmt.Println(stats.Capacity, stats.BusyCount, stats.TotalGets, stats.TotalReturns)
	// Output:
	// hello
	// true
	// 4 0 1 1
}

func ExamplePool_Acquire_expansion() {
	p, err := pool.New(1,
		pool.Constructor(func() *[]byte { b := make([]byte, 0, 64); return &b }),
		pool.WithExpansion(1.0, 1000),
		pool.WithLogger(zap.NewNop()),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Cleanup()

	a, _ := p.Acquire()
	b, _ := p.Acquire()
	fmt.Println(a != b, p.Capacity(), p.MaxAllowedCapacity(), p.Stats().TotalExpansions)
	// Output:
	// true 2 11 1
}

func ExampleWithOverflowPolicy() {
	p, err := pool.New(1,
		pool.Constructor(func() *bytes.Buffer { return new(bytes.Buffer) }),
		pool.WithoutExpansion(),
		pool.WithOverflowPolicy(pool.OverflowTransient),
		pool.WithLogger(zap.NewNop()),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Cleanup()

	pooled, _ := p.Acquire()
	extra, ok := p.Acquire()
	fmt.Println(ok, pooled != extra)
	fmt.Println(p.Release(extra), p.Stats().OverflowHits)
	// Output:
	// true true
	// false 1
}
