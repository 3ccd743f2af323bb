package config

import (
	"os"
	"os/exec"
	"strings"
	"sync"
)

// CapabilityProbe reports whether a CUDA-capable runtime is present.
type CapabilityProbe interface {
	CUDAAvailable() bool
}

// ProbeFunc adapts a function to CapabilityProbe.
type ProbeFunc func() bool

func (f ProbeFunc) CUDAAvailable() bool {
	return f()
}

// StaticProbe returns a fixed answer.
type StaticProbe bool

func (p StaticProbe) CUDAAvailable() bool {
	return bool(p)
}

// SystemProbe inspects the host for an NVIDIA driver. CUDA_VISIBLE_DEVICES set to an
// empty string or -1 hides every GPU, as it does for the CUDA runtime.
type SystemProbe struct {
	LookupEnv func(string) (string, bool)
	Stat      func(string) (os.FileInfo, error)
	LookPath  func(string) (string, error)
}

const nvidiaDriverVersionFile = "/proc/driver/nvidia/version"

func (p SystemProbe) CUDAAvailable() bool {
	lookupEnv, stat, lookPath := p.LookupEnv, p.Stat, p.LookPath
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if stat == nil {
		stat = os.Stat
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if visible, ok := lookupEnv("CUDA_VISIBLE_DEVICES"); ok {
		visible = strings.TrimSpace(visible)
		if visible == "" || visible == "-1" {
			return false
		}
	}
	if _, err := stat(nvidiaDriverVersionFile); err == nil {
		return true
	}
	_, err := lookPath("nvidia-smi")
	return err == nil
}

// onceProbe asks the wrapped probe at most once.
type onceProbe struct {
	answer func() bool
}

func memoizeProbe(p CapabilityProbe) CapabilityProbe {
	if p == nil {
		p = SystemProbe{}
	}
	if op, ok := p.(*onceProbe); ok {
		return op
	}
	return &onceProbe{answer: sync.OnceValue(p.CUDAAvailable)}
}

func (p *onceProbe) CUDAAvailable() bool {
	return p.answer()
}
