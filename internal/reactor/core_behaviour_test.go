package reactor_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/reactorsim/internal/reactor"
)

type call struct {
	rod, inlet float64
	dt         float64
}

func replay(calls []call) []reactor.State {
	core := reactor.New(reactor.DefaultConditions(), reactor.DefaultParams())
	out := make([]reactor.State, 0, len(calls))
	for _, c := range calls {
		core.SetControlRodInsertion(c.rod)
		core.SetCoolantInletTemperature(c.inlet)
		core.Update(c.dt)
		out = append(out, core.State())
	}
	return out
}

var _ = Describe("Core", func() {
	var core *reactor.Core

	BeforeEach(func() {
		core = reactor.New(reactor.DefaultConditions(), reactor.DefaultParams())
	})

	Describe("a single reference step", func() {
		It("follows the exponential flux law", func() {
			core.Update(0.1)
			s := core.State()
			Expect(s.Reactivity).To(BeNumerically("~", -0.015, 1e-12))
			Expect(s.NeutronFlux).To(BeNumerically("~", 0.998501, 1e-6))
			Expect(s.PowerLevel).To(BeNumerically("~", 0.0009985, 1e-7))
		})

		It("derives power from flux only", func() {
			for i := 0; i < 50; i++ {
				core.Update(0.1)
				s := core.State()
				Expect(s.PowerLevel).To(Equal(reactor.PowerPerFlux * s.NeutronFlux))
			}
		})
	})

	Describe("the SCRAM latch", func() {
		Context("in the Normal state", func() {
			It("stays clear under nominal cooling", func() {
				for i := 0; i < 600; i++ {
					core.Update(0.1)
				}
				Expect(core.Tripped()).To(BeFalse())
			})
		})

		Context("once Tripped", func() {
			BeforeEach(func() {
				hot := reactor.DefaultConditions()
				hot.Temperature = 1500
				hot.CoolantInletTemperature = 1500
				core = reactor.New(hot, reactor.DefaultParams())
				core.Update(0.1)
				Expect(core.Tripped()).To(BeTrue())
			})

			It("never clears, even after the core cools", func() {
				core.SetCoolantInletTemperature(290)
				for i := 0; i < 300; i++ {
					core.Update(0.1)
					Expect(core.State().ScramTripped).To(BeTrue())
				}
				Expect(core.State().Temperature).To(BeNumerically("<", reactor.TripTemperature))
			})

			It("keeps running the physics", func() {
				before := core.State()
				core.Update(0.1)
				Expect(core.State().Temperature).NotTo(Equal(before.Temperature))
			})
		})
	})

	Describe("determinism", func() {
		It("reproduces identical call sequences bit for bit", func() {
			calls := make([]call, 0, 300)
			for i := 0; i < 300; i++ {
				calls = append(calls, call{
					rod:   0.5 + 0.4*math.Sin(float64(i)/17),
					inlet: 290 + 10*math.Cos(float64(i)/11),
					dt:    0.05 + 0.001*float64(i%7),
				})
			}
			Expect(replay(calls)).To(Equal(replay(calls)))
		})
	})

	DescribeTable("rod insertion clamp",
		func(in, want float64) {
			core.SetControlRodInsertion(in)
			Expect(core.State().ControlRodInsertion).To(Equal(want))
		},
		Entry("below range", -1.0, 0.0),
		Entry("in range", 0.25, 0.25),
		Entry("above range", 2.0, 1.0),
	)
})
