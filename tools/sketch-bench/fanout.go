package main

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Sunmxt/linker-sketch/log"
	"github.com/Sunmxt/linker-sketch/proto"
)

type benchPeer struct {
	id     proto.Identity
	conn   net.Conn
	frames *proto.FrameReader
}

func join(address string, timeout time.Duration) (*benchPeer, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, err
	}
	conn.SetReadDeadline(time.Now().Add(timeout))
	frames := proto.NewFrameReader(conn)
	frame, err := frames.ReadFrame()
	if err != nil {
		conn.Close()
		return nil, err
	}
	id, err := proto.DecodeIdentity(frame)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &benchPeer{id: id, conn: conn, frames: frames}, nil
}

// receive counts strokes until want arrived.
func (p *benchPeer) receive(want uint, deadline time.Time) (time.Duration, error) {
	start := time.Now()
	p.conn.SetReadDeadline(deadline)
	for got := uint(0); got < want; {
		frame, err := p.frames.ReadFrame()
		if err != nil {
			return 0, fmt.Errorf("%v: %v after %v strokes", p.id.Label(), err, got)
		}
		msg, err := proto.Decode(frame)
		if err != nil {
			return 0, err
		}
		if _, ok := msg.(proto.Stroke); ok {
			got++
		}
	}
	return time.Since(start), nil
}

func GoFanOut(config *BenchmarkConfigure) error {
	address := config.RelayEndpoint.Address()
	log.Info0("Work in fan-out mode. Relay is " + address + ".")

	peers := make([]*benchPeer, 0, config.Peers)
	defer func() {
		for _, p := range peers {
			proto.WriteMessage(p.conn, proto.Control{Kind: proto.CONTROL_QUIT})
			p.conn.Close()
		}
	}()
	for i := uint(0); i < config.Peers; i++ {
		p, err := join(address, config.Timeout)
		if err != nil {
			return fmt.Errorf("Peer #%v cannot join: %v", i, err)
		}
		peers = append(peers, p)
	}
	log.Infof0("%v peers joined.", len(peers))

	deadline := time.Now().Add(config.Timeout)
	var (
		wg      sync.WaitGroup
		lock    sync.Mutex
		slowest time.Duration
		failure error
	)
	for _, p := range peers[1:] {
		wg.Add(1)
		go func(p *benchPeer) {
			defer wg.Done()
			elapsed, err := p.receive(config.Strokes, deadline)
			lock.Lock()
			defer lock.Unlock()
			if err != nil && failure == nil {
				failure = err
			}
			if elapsed > slowest {
				slowest = elapsed
			}
		}(p)
	}

	drawer, start := peers[0], time.Now()
	for i := uint(0); i < config.Strokes; i++ {
		x := int16(i % 1000)
		if err := proto.WriteMessage(drawer.conn, proto.NewStroke(x, 0, x, 100)); err != nil {
			return fmt.Errorf("Draw failure after %v strokes: %v", i, err)
		}
	}
	sent := time.Since(start)
	wg.Wait()
	if failure != nil {
		return failure
	}
	if slowest <= 0 {
		return errors.New("No stroke timing collected.")
	}

	delivered := config.Strokes * (config.Peers - 1)
	log.Infof0("Sent %v strokes in %v.", config.Strokes, sent)
	log.Infof0("Delivered %v strokes to %v peers in %v. %.1f strokes/s.", delivered, config.Peers-1, slowest,
		float64(delivered)/slowest.Seconds())
	return nil
}
