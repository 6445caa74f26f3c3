package core

// Hooks observe running machines.  Every field is optional.
//
// Hooks are called from the machine's own serialized work, so a hook
// must not block for long and must not feed the machine synchronously.
type Hooks struct {
	// OnStep sees every Stride (and the error, if any) right after
	// Step returns.  The Stride can be nil only when err isn't.
	OnStep func(machine string, stride *Stride, err error)

	// OnActivate sees every entry component activation.
	OnActivate func(machine, state string)

	// OnFail sees the fatal error that stopped a machine.
	OnFail func(machine string, err error)
}

func (h Hooks) step(machine string, stride *Stride, err error) {
	if h.OnStep != nil {
		h.OnStep(machine, stride, err)
	}
}

func (h Hooks) activate(machine, state string) {
	if h.OnActivate != nil {
		h.OnActivate(machine, state)
	}
}

func (h Hooks) fail(machine string, err error) {
	if h.OnFail != nil {
		h.OnFail(machine, err)
	}
}

// ChainHooks calls each of the given Hooks in order.
func ChainHooks(hs ...Hooks) Hooks {
	return Hooks{
		OnStep: func(machine string, stride *Stride, err error) {
			for _, h := range hs {
				h.step(machine, stride, err)
			}
		},
		OnActivate: func(machine, state string) {
			for _, h := range hs {
				h.activate(machine, state)
			}
		},
		OnFail: func(machine string, err error) {
			for _, h := range hs {
				h.fail(machine, err)
			}
		},
	}
}
