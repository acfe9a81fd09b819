package experiment

import "github.com/san-kum/bdfsim/internal/ode"

func observerCounter(n *int) ode.StepObserver {
	return ode.ObserverFunc(func(ode.StepInfo) { *n++ })
}
