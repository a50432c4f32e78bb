//go:build pi

package ws281x

import (
	ws "github.com/rpi-ws281x/rpi-ws281x-go"
)

func makeEngine(strips []Strip) (engine, error) {
	opt := ws.DefaultOptions
	template := opt.Channels[0]
	opt.Channels = make([]ws.ChannelOption, 0, len(strips))
	for _, strip := range strips {
		ch := template
		ch.GpioPin = strip.GpioPin
		ch.LedCount = strip.LedCount
		ch.Brightness = strip.Brightness
		opt.Channels = append(opt.Channels, ch)
	}
	return ws.MakeWS2811(&opt)
}
