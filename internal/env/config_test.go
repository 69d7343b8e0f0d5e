package env_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/luma/regbridge/internal/env"
)

var _ = Describe("env / Config", func() {
	process := func(vars map[string]string) (*env.Config, error) {
		return env.Process(context.Background(), envconfig.MapLookuper(vars))
	}

	It("has defaults", func() {
		conf, err := process(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(conf.LogLevel).To(Equal("info"))
		Expect(conf.LogEncoding).To(Equal("json"))
		Expect(conf.Backend).To(BeEmpty())
		Expect(conf.HiveStore).To(Equal(env.HiveStoreFile))
		Expect(conf.MaxBuffer).To(Equal(256 << 20))
		Expect(conf.DialTimeout).To(Equal(10 * time.Second))
		Expect(conf.Trace).To(BeFalse())
		Expect(conf.Reuseport).To(BeFalse())
	})

	It("reads overrides", func() {
		conf, err := process(map[string]string{
			"REGBRIDGE_BACKEND":      "memory",
			"REGBRIDGE_MAX_BUFFER":   "4096",
			"REGBRIDGE_DIAL_TIMEOUT": "250ms",
			"REGBRIDGE_TRACE":        "true",
			"REGBRIDGE_REUSEPORT":    "true",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(conf.Backend).To(Equal(env.BackendMemory))
		Expect(conf.MaxBuffer).To(Equal(4096))
		Expect(conf.DialTimeout).To(Equal(250 * time.Millisecond))
		Expect(conf.Trace).To(BeTrue())
		Expect(conf.Reuseport).To(BeTrue())
	})

	It("rejects unknown backends and bad sizes", func() {
		_, err := process(map[string]string{"REGBRIDGE_BACKEND": "remote"})
		Expect(err).To(MatchError(ContainSubstring("unknown backend")))

		_, err = process(map[string]string{"REGBRIDGE_HIVE_STORE": "s3"})
		Expect(err).To(MatchError(ContainSubstring("unknown store")))

		_, err = process(map[string]string{"REGBRIDGE_MAX_BUFFER": "0"})
		Expect(err).To(MatchError(ContainSubstring("must be positive")))
	})

	Describe("MakeLogger", func() {
		It("uses the configured level", func() {
			conf, err := process(map[string]string{"REGBRIDGE_LOG_LEVEL": "debug"})
			Expect(err).NotTo(HaveOccurred())

			log, err := env.MakeLogger(conf)
			Expect(err).NotTo(HaveOccurred())
			Expect(log.Core().Enabled(zapcore.DebugLevel)).To(BeTrue())
		})

		It("rejects unknown levels", func() {
			_, err := env.MakeLogger(&env.Config{LogLevel: "chatty", LogEncoding: "json"})
			Expect(err).To(MatchError(ContainSubstring("REGBRIDGE_LOG_LEVEL")))
		})
	})
})
