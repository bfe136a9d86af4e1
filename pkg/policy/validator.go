// Package policy implements the pre-connection checks that gate every probe
// attempt: target-security validation and sliding-window rate limiting.
package policy

import (
	"net"

	"github.com/isitobservable/netwait/pkg/target"
	"github.com/isitobservable/netwait/pkg/types"
)

// Validator rejects targets that violate host and port policy. It is
// stateless after construction and safe for concurrent use.
type Validator struct {
	// AllowPrivateIPs permits RFC-1918 and loopback IP hosts.
	AllowPrivateIPs bool
	// AllowLocalhost permits the literal hosts "localhost" and "127.0.0.1".
	AllowLocalhost bool
	// AllowedPorts, when non-nil, is the only set of permitted ports.
	AllowedPorts []int
	// BlockedPorts are rejected even when allowed elsewhere.
	BlockedPorts []int
	// MaxHostnameLen caps the hostname length.
	MaxHostnameLen int
	// MaxURLLen caps the full URL length for HTTP targets.
	MaxURLLen int
}

// NewValidator returns the default validator: permissive about private
// addresses, with a blocklist of commonly sensitive service ports.
func NewValidator() *Validator {
	return &Validator{
		AllowPrivateIPs: true,
		AllowLocalhost:  true,
		BlockedPorts:    []int{22, 23, 135, 445, 1433, 3389, 5432, 6379},
		MaxHostnameLen:  253,
		MaxURLLen:       2048,
	}
}

// Production returns the strict preset: public hosts only, web ports only.
func Production() *Validator {
	return &Validator{
		AllowPrivateIPs: false,
		AllowLocalhost:  false,
		AllowedPorts:    []int{80, 443, 8080, 8443},
		BlockedPorts:    []int{22, 23, 25, 53, 135, 139, 445, 993, 995, 1433, 1521, 3306, 3389, 5432, 6379},
		MaxHostnameLen:  100,
		MaxURLLen:       1024,
	}
}

// Development returns the permissive preset, blocking only a short list of
// dangerous ports.
func Development() *Validator {
	return &Validator{
		AllowPrivateIPs: true,
		AllowLocalhost:  true,
		BlockedPorts:    []int{22, 23, 135, 445, 3389},
		MaxHostnameLen:  253,
		MaxURLLen:       2048,
	}
}

// Preset resolves a named preset: "production", "development", or "" / "off"
// for no validation (nil validator).
func Preset(name string) (*Validator, error) {
	switch name {
	case "", "off", "none":
		return nil, nil
	case "production":
		return Production(), nil
	case "development":
		return Development(), nil
	default:
		return nil, types.NewError(types.ErrCodeInvalidInput, "unknown security preset %q (use production or development)", name)
	}
}

// Validate checks one target against the policy.
func (v *Validator) Validate(t target.Target) error {
	if t.Kind() == target.KindHTTP {
		if u := t.URL(); u != nil && len(u.String()) > v.MaxURLLen {
			return types.NewTargetError(types.ErrCodePolicyViolation, t.String(), "URL exceeds maximum length %d", v.MaxURLLen)
		}
	}
	if err := v.validateHost(t); err != nil {
		return err
	}
	return v.validatePort(t)
}

func (v *Validator) validateHost(t target.Target) error {
	host := t.Host()

	if len(host) > v.MaxHostnameLen {
		return types.NewTargetError(types.ErrCodePolicyViolation, t.String(), "hostname exceeds maximum length %d", v.MaxHostnameLen)
	}

	if !v.AllowLocalhost && (host == "localhost" || host == "127.0.0.1" || host == "::1") {
		return types.NewTargetError(types.ErrCodePolicyViolation, t.String(), "localhost connections are not allowed")
	}

	if !v.AllowPrivateIPs {
		if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
			return types.NewTargetError(types.ErrCodePolicyViolation, t.String(), "private IP addresses are not allowed")
		}
	}

	return nil
}

func (v *Validator) validatePort(t target.Target) error {
	port := t.Port()

	for _, blocked := range v.BlockedPorts {
		if port == blocked {
			return types.NewTargetError(types.ErrCodePolicyViolation, t.String(), "port %d is blocked by policy", port)
		}
	}

	if v.AllowedPorts != nil {
		for _, allowed := range v.AllowedPorts {
			if port == allowed {
				return nil
			}
		}
		return types.NewTargetError(types.ErrCodePolicyViolation, t.String(), "port %d is not in the allowed set", port)
	}

	return nil
}

func isPrivateIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		switch {
		case v4[0] == 10:
			return true
		case v4[0] == 172 && v4[1]&0xf0 == 16:
			return true
		case v4[0] == 192 && v4[1] == 168:
			return true
		case v4[0] == 127:
			return true
		}
		return false
	}
	return ip.IsLoopback() || ip.IsUnspecified() || ip.IsPrivate()
}
