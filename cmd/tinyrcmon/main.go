package main

import (
	"flag"
	"log"
	"strings"

	"github.com/robotalks/tinyrc/pkg/env"
	"github.com/robotalks/tinyrc/pkg/link/mqtt"
)

var (
	watch = true
)

func init() {
	env.SetupFlags()
	flag.BoolVar(&watch, "watch", watch, "Keep printing messages after sending.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := env.Default()
	c, err := mqtt.NewClientFromURL(conf.LinkURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer c.Close()

	sub := c.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/meta") && len(payload) == 0 {
			log.Printf("%s: gone", topic)
			return
		}
		log.Printf("%s: %q", topic, string(payload))
	}))
	if sub.Token.Wait() && sub.Token.Error() != nil {
		log.Fatalln(sub.Token.Error())
	}

	if args := flag.Args(); len(args) > 0 {
		if !conf.Ref.IsValid() {
			log.Fatalln("vehicle type and id must be specified")
		}
		rw := mqtt.NewPacketReadWriter(c).ForOperator(conf.Ref)
		if err := rw.WritePacket([]byte(strings.Join(args, " ") + "\n")); err != nil {
			log.Fatalln(err)
		}
		if !watch {
			return
		}
	}
	<-(chan struct{})(nil)
}
