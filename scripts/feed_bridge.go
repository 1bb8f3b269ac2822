// feed_bridge streams a synthetic sine tone into a running capture
// bridge, standing in for the browser microphone client during local
// testing.
//
//	go run scripts/feed_bridge.go -addr=ws://localhost:8090/media -seconds=5
package main

import (
	"encoding/base64"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sampleRate = 16000
	frameMS    = 20
)

type mediaMessage struct {
	Event string `json:"event"`
	Media struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

func main() {
	addr := flag.String("addr", "ws://localhost:8090/media", "bridge media endpoint")
	seconds := flag.Int("seconds", 5, "tone duration")
	freq := flag.Float64("freq", 440, "tone frequency in Hz")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	samplesPerFrame := sampleRate * frameMS / 1000
	total := *seconds * 1000 / frameMS
	ticker := time.NewTicker(frameMS * time.Millisecond)
	defer ticker.Stop()

	var phase float64
	step := 2 * math.Pi * *freq / sampleRate
	for i := 0; i < total; i++ {
		buf := make([]byte, samplesPerFrame*4)
		for n := 0; n < samplesPerFrame; n++ {
			s := float32(0.3 * math.Sin(phase))
			binary.LittleEndian.PutUint32(buf[n*4:], math.Float32bits(s))
			phase += step
		}
		var msg mediaMessage
		msg.Event = "media"
		msg.Media.Payload = base64.StdEncoding.EncodeToString(buf)
		if err := conn.WriteJSON(msg); err != nil {
			fmt.Fprintf(os.Stderr, "write frame %d: %v\n", i, err)
			os.Exit(1)
		}
		<-ticker.C
	}
	fmt.Printf("sent %d frames (%ds of %.0f Hz tone)\n", total, *seconds, *freq)
}
