package adi

// Replace swaps every definition of the provider's token in this injector
// for p and drops cached values. Intended for tests.
func (in *Injector) Replace(p Provider) error {
	if in.isDestroyed() {
		return errInjectorDestroyed(in)
	}

	def, err := p.compile()
	if err != nil {
		return err
	}

	rec, _ := in.records.GetOrCreate(p.token, func() *Record { return newRecord(p.token, in) })
	rec.replace(def)

	in.logger.Debug("provider replaced", "injector", in.name, "token", tokenName(p.token))
	in.observeProvide(p.token)
	return nil
}

func (in *Injector) ReplaceValue(token Token, value any) error {
	return in.Replace(Value(token, value))
}

func MustReplace(in *Injector, p Provider) {
	if err := in.Replace(p); err != nil {
		panic(err)
	}
}
