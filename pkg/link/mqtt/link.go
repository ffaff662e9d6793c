package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/tinyrc/pkg/framework"
	"github.com/robotalks/tinyrc/pkg/link"
)

// Link implements link.Link and link.Advertiser for a vehicle.
type Link struct {
	*link.Pipe

	Client *Client
	Ref    link.Ref
	// Advertise publishes the meta topic on every connect.
	Advertise bool

	rw       *ReadWriter
	metaJSON []byte
	advLock  sync.Mutex
}

// NewLink creates a vehicle Link on the broker at brokerURL.
// The broker clears the meta topic if the vehicle disconnects unexpectedly.
func NewLink(brokerURL string, ref link.Ref, meta link.Meta) (*Link, error) {
	metaJSON, err := json.Marshal(&struct {
		link.Ref
		link.Meta
	}{ref, meta})
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+MetaTopic(ref), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("tinyrc:" + ref.Name())
	}
	l := &Link{
		Client:    NewClient(opts, topicPrefix),
		Ref:       ref,
		Advertise: true,
		metaJSON:  metaJSON,
	}
	l.Client.OnConnect = func(*Client) { l.onConnected() }
	l.rw = NewPacketReadWriter(l.Client).ForVehicle(ref)
	l.Pipe = link.NewPipe(l.rw)
	return l, nil
}

// MetaTopic returns the meta topic of a vehicle.
func MetaTopic(ref link.Ref) string {
	return ref.Name() + "/meta"
}

// Run implements Runnable.
func (l *Link) Run(ctx context.Context) error {
	token := l.Client.Connect()
	if err := fx.RunWithContext(ctx, func() error {
		token.Wait()
		return token.Error()
	}); err != nil {
		l.Client.Close()
		return err
	}
	err := fx.NewRunnerWith(ctx).
		Go(fx.NamedRun("mqtt-sub", l.rw), fx.NamedRun("mqtt-pipe", l.Pipe)).
		Wait()
	l.advLock.Lock()
	if l.Advertise {
		l.Client.PubWith(MetaTopic(l.Ref), nil, 1, true).WaitTimeout(time.Second)
	}
	l.advLock.Unlock()
	l.Client.Close()
	return err
}

// StartAdvertising implements link.Advertiser.
func (l *Link) StartAdvertising() error {
	l.advLock.Lock()
	defer l.advLock.Unlock()
	l.Advertise = true
	return l.publishMeta(l.metaJSON)
}

// StopAdvertising implements link.Advertiser.
func (l *Link) StopAdvertising() error {
	l.advLock.Lock()
	defer l.advLock.Unlock()
	l.Advertise = false
	return l.publishMeta(nil)
}

func (l *Link) publishMeta(payload []byte) error {
	if !l.Client.Connected() {
		return nil
	}
	token := l.Client.PubWith(MetaTopic(l.Ref), payload, 1, true)
	if !token.WaitTimeout(l.rw.PublishTimeout) {
		return context.DeadlineExceeded
	}
	return token.Error()
}

func (l *Link) onConnected() {
	l.advLock.Lock()
	advertise := l.Advertise
	l.advLock.Unlock()
	if advertise {
		// paho runs OnConnect on its own goroutine, waiting is safe.
		if err := l.StartAdvertising(); err != nil {
			glog.Warningf("mqtt: advertise failed: %v", err)
		}
	}
}
