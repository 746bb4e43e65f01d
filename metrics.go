package adi

import (
	"time"
)

type ResolveHook func(token string, duration time.Duration, err error)

type ProvideHook func(token string)

func (in *Injector) observeResolve(token Token, d time.Duration, err error) {
	for _, hook := range in.config.onResolve {
		hook(tokenName(token), d, err)
	}
}

func (in *Injector) observeProvide(token Token) {
	for _, hook := range in.config.onProvide {
		hook(tokenName(token))
	}
}
