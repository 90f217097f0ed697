package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/config"
	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc"
	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
)

func writeConfigFile(dir, content string) string {
	path := filepath.Join(dir, "config.yaml")
	ExpectWithOffset(1, os.WriteFile(path, []byte(content), 0o644)).ToNot(HaveOccurred())
	return path
}

func intPtr(i int) *int { return &i }

func truthyPtr(b bool) *config.Truthy {
	t := config.Truthy(b)
	return &t
}

var _ = Describe("Config tests", func() {
	Context("Load", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("loads a valid document", func() {
			path := writeConfigFile(tempDir, `
device: enp0s3
qdiscs:
  - handle: "1:0"
    discipline: htb
classes:
  - parent: "1:0"
    classid: "1:1"
    rate: 100Kbit
filters:
  - parent: "1:0"
    priority: 5
    port: 8080
    flowid: "1:1"
  - parent: "1:0"
    priority: 8
    cgroup: yes
    handle: "8:"
`)

			cfg, err := config.Load(path)

			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Device).To(Equal("enp0s3"))
			Expect(cfg.QDiscs).To(HaveLen(1))
			Expect(cfg.Classes).To(HaveLen(1))
			Expect(cfg.Filters).To(HaveLen(2))
			Expect(cfg.Filters[0].Port).ToNot(BeNil())
			Expect(*cfg.Filters[0].Port).To(Equal(8080))
			Expect(cfg.Filters[1].Cgroup).ToNot(BeNil())
			Expect(bool(*cfg.Filters[1].Cgroup)).To(BeTrue())
		})

		It("accepts quoted truthy strings for the cgroup selector", func() {
			path := writeConfigFile(tempDir, `
device: enp0s3
filters:
  - parent: "1:0"
    priority: 8
    cgroup: "on"
    handle: "0xa4"
`)

			cfg, err := config.Load(path)

			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Filters[0].Cgroup).ToNot(BeNil())
			Expect(bool(*cfg.Filters[0].Cgroup)).To(BeTrue())
		})

		It("fails on a non truthy cgroup value", func() {
			path := writeConfigFile(tempDir, `
device: enp0s3
filters:
  - parent: "1:0"
    priority: 8
    cgroup: "maybe"
    handle: "8:"
`)

			_, err := config.Load(path)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid boolean value"))
		})

		It("fails when the file does not exist", func() {
			_, err := config.Load(filepath.Join(tempDir, "does-not-exist.yaml"))

			Expect(err).To(HaveOccurred())
		})

		It("fails on malformed yaml", func() {
			path := writeConfigFile(tempDir, "device: [broken")

			_, err := config.Load(path)

			Expect(err).To(HaveOccurred())
		})

		It("fails on unknown document fields", func() {
			path := writeConfigFile(tempDir, `
device: enp0s3
qdisks:
  - discipline: htb
`)

			_, err := config.Load(path)

			Expect(err).To(HaveOccurred())
		})
	})

	Context("Normalize", func() {
		It("converts a full document grouped per device in first appearance order", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				QDiscs: []config.QDiscSpec{
					{Handle: "1:0", Discipline: "htb"},
					{Device: "enp0s8", Discipline: "ingress"},
				},
				Classes: []config.ClassSpec{
					{Parent: "1:0", ClassID: "1:1", Rate: "100Kbit", Ceil: "200Kbit"},
				},
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, Port: intPtr(8080), FlowID: "1:1"},
					{Parent: "1:0", Priority: 8, Cgroup: truthyPtr(true), Handle: "8:"},
				},
			}

			states, err := cfg.Normalize()

			Expect(err).ToNot(HaveOccurred())
			Expect(states).To(HaveLen(2))
			Expect(states[0].Device).To(Equal("enp0s3"))
			Expect(states[1].Device).To(Equal("enp0s8"))

			Expect(states[0].QDiscs).To(HaveLen(1))
			expectedHTB := types.NewHTBQDiscBuilder().WithHandle(types.NewHandle(1, 0)).Build()
			Expect(states[0].QDiscs[0].QDisc.Equals(expectedHTB)).To(BeTrue())
			Expect(states[0].QDiscs[0].State).To(Equal(tc.StatePresent))

			Expect(states[1].QDiscs).To(HaveLen(1))
			Expect(states[1].QDiscs[0].QDisc.Type()).To(Equal(types.QDiscIngressType))
			Expect(states[1].Classes).To(BeEmpty())
			Expect(states[1].Filters).To(BeEmpty())

			Expect(states[0].Classes).To(HaveLen(1))
			expectedClass := types.NewHTBClassBuilder().
				WithParent(types.NewHandle(1, 0)).
				WithClassID(types.NewHandle(1, 1)).
				WithRate(types.MustParseRate("100Kbit")).
				WithCeil(types.MustParseRate("200Kbit")).
				Build()
			Expect(states[0].Classes[0].Class.Equals(expectedClass)).To(BeTrue())

			Expect(states[0].Filters).To(HaveLen(2))
			expectedU32 := types.NewU32FilterBuilder().
				WithParent(types.NewHandle(1, 0)).
				WithPriority(5).
				WithDstPort(8080).
				WithFlowID(types.NewHandle(1, 1)).
				Build()
			Expect(states[0].Filters[0].Filter.Equals(expectedU32)).To(BeTrue())
			expectedCgroup := types.NewCgroupFilterBuilder().
				WithParent(types.NewHandle(1, 0)).
				WithPriority(8).
				WithHandle(types.NewHandle(8, 0)).
				Build()
			Expect(states[0].Filters[1].Filter.Equals(expectedCgroup)).To(BeTrue())
		})

		It("parses absent state", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				QDiscs: []config.QDiscSpec{{Handle: "1:0", Discipline: "htb", State: "absent"}},
			}

			states, err := cfg.Normalize()

			Expect(err).ToNot(HaveOccurred())
			Expect(states[0].QDiscs[0].State).To(Equal(tc.StateAbsent))
		})

		It("accepts a class without rate when absent", func() {
			cfg := &config.Config{
				Device:  "enp0s3",
				Classes: []config.ClassSpec{{Parent: "1:0", ClassID: "1:1", State: "absent"}},
			}

			states, err := cfg.Normalize()

			Expect(err).ToNot(HaveOccurred())
			Expect(states[0].Classes[0].State).To(Equal(tc.StateAbsent))
		})

		It("accepts a u32 filter without flowid when absent", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, Port: intPtr(8080), State: "absent"},
				},
			}

			states, err := cfg.Normalize()

			Expect(err).ToNot(HaveOccurred())
			Expect(states[0].Filters[0].State).To(Equal(tc.StateAbsent))
		})

		It("accepts port boundary values", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, Port: intPtr(0), FlowID: "1:1"},
					{Parent: "1:0", Priority: 6, Port: intPtr(65535), FlowID: "1:1"},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).ToNot(HaveOccurred())
		})

		It("accepts distinct cgroup handle forms", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 8, Cgroup: truthyPtr(true), Handle: "5:"},
					{Parent: "1:0", Priority: 9, Cgroup: truthyPtr(true), Handle: "0xa4"},
				},
			}

			states, err := cfg.Normalize()

			Expect(err).ToNot(HaveOccurred())
			first := states[0].Filters[0].Filter.Attrs().Handle
			second := states[0].Filters[1].Filter.Attrs().Handle
			Expect(first.Equals(types.NewHandle(5, 0))).To(BeTrue())
			Expect(second.Equals(types.NewHandle(0xa4, 0))).To(BeTrue())
			Expect(first.Equals(*second)).To(BeFalse())
		})

		It("fails on a cgroup handle with a non zero minor", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 8, Cgroup: truthyPtr(true), Handle: "5:3"},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(MatchError(types.ErrInvalidHandle))
			Expect(err.Error()).To(ContainSubstring("minor"))
		})

		It("fails when a record has no device and the document sets no default", func() {
			cfg := &config.Config{
				QDiscs: []config.QDiscSpec{{Handle: "1:0", Discipline: "htb"}},
			}

			_, err := cfg.Normalize()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("qdiscs[0]"))
		})

		It("fails on a malformed handle", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				QDiscs: []config.QDiscSpec{{Handle: "1:2:3", Discipline: "htb"}},
			}

			_, err := cfg.Normalize()

			Expect(err).To(MatchError(types.ErrInvalidHandle))
		})

		It("fails on a malformed rate", func() {
			cfg := &config.Config{
				Device:  "enp0s3",
				Classes: []config.ClassSpec{{Parent: "1:0", ClassID: "1:1", Rate: "fast"}},
			}

			_, err := cfg.Normalize()

			Expect(err).To(MatchError(types.ErrInvalidRate))
		})

		It("fails on an unsupported discipline", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				QDiscs: []config.QDiscSpec{{Handle: "1:0", Discipline: "fq_codel"}},
			}

			_, err := cfg.Normalize()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported discipline"))
		})

		It("fails on an invalid state", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				QDiscs: []config.QDiscSpec{{Handle: "1:0", Discipline: "htb", State: "gone"}},
			}

			_, err := cfg.Normalize()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid state"))
		})

		It("fails on a port above the valid range", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, Port: intPtr(65536), FlowID: "1:1"},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(MatchError(tc.ErrPortOutOfRange))
		})

		It("fails on a negative port", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, Port: intPtr(-1), FlowID: "1:1"},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(MatchError(tc.ErrPortOutOfRange))
		})

		It("fails when both port and cgroup classifiers are set", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, Port: intPtr(8080),
						Cgroup: truthyPtr(true), Handle: "8:", FlowID: "1:1"},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("mutually exclusive"))
		})

		It("fails when neither port nor cgroup classifiers are set", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, FlowID: "1:1"},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("exactly one of port or cgroup"))
		})

		It("treats a false cgroup selector as unset", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, Cgroup: truthyPtr(false), FlowID: "1:1"},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("exactly one of port or cgroup"))
		})

		It("fails on a cgroup filter without a handle", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 8, Cgroup: truthyPtr(true)},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(MatchError(tc.ErrMissingCgroupHandle))
		})

		It("fails on a filter without priority", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Port: intPtr(8080), FlowID: "1:1"},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("priority is required"))
		})

		It("fails on a present u32 filter without flowid", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, Port: intPtr(8080)},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("flowid is required"))
		})

		It("carries the failing record index in the error", func() {
			cfg := &config.Config{
				Device: "enp0s3",
				Filters: []config.FilterSpec{
					{Parent: "1:0", Priority: 5, Port: intPtr(8080), FlowID: "1:1"},
					{Parent: "1:0", Priority: 8, Cgroup: truthyPtr(true)},
				},
			}

			_, err := cfg.Normalize()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("filters[1]"))
		})
	})
})
