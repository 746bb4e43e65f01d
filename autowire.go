package adi

import (
	ireflect "github.com/magicmatatjahu/adi/internal/reflect"
)

const TagKey = "adi"

// Autowire provides T, a pointer to a struct, by injecting every field
// tagged with `adi:"..."`. Fields resolve by type unless the tag names a
// string token:
//
//	type Service struct {
//		Repo   *Repository   `adi:""`
//		Cache  Cache         `adi:"optional"`
//		Secret string        `adi:"token=secret,name=primary"`
//	}
func Autowire[T any](opts ...ProviderOption) (Provider, error) {
	t := TypeOf[T]()
	fields, err := ireflect.TaggedFields(t, TagKey)
	if err != nil {
		return Provider{}, errInvalidProvider(t, err)
	}

	props := make([]ProviderOption, 0, len(fields)+len(opts))
	for _, f := range fields {
		props = append(props, Prop(f.Name, fieldInjection(f)))
	}
	return Class(t, t, append(props, opts...)...), nil
}

func MustAutowire[T any](opts ...ProviderOption) Provider {
	p, err := Autowire[T](opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func fieldInjection(f ireflect.Field) Injection {
	var token Token = f.Type
	if f.Token != "" {
		token = f.Token
	} else if special, ok := specialTypes[f.Type]; ok {
		token = special
	}

	var opts []InjectionOption
	if f.Named != "" {
		opts = append(opts, Named(f.Named))
	}
	if f.Optional {
		opts = append(opts, Optional())
	}
	return Inject(token, opts...)
}
