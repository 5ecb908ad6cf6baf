package cmdline

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UintValue
type UintValue struct {
	Value     uint
	IsDefault bool
	Error     error
	Base      int
}

func NewUintValueDefault(defaultValue uint) *UintValue {
	return &UintValue{
		Value:     defaultValue,
		Base:      10,
		IsDefault: true,
		Error:     nil,
	}
}

func NewUintValue() *UintValue {
	return NewUintValueDefault(0)
}

func (val *UintValue) Set(raw string) error {
	actual, err := strconv.ParseUint(raw, val.Base, 32)
	if err != nil {
		val.Error = err
		return err
	}
	val.IsDefault = false
	val.Value = uint(actual)
	return nil
}

func (val *UintValue) String() string {
	base := val.Base
	if base == 0 {
		base = 10
	}
	return strconv.FormatUint(uint64(val.Value), base)
}

// StringValue
type StringValue struct {
	Value     string
	IsDefault bool
	Error     error
}

func NewStringValueDefault(defaultValue string) *StringValue {
	return &StringValue{
		Value:     defaultValue,
		IsDefault: true,
		Error:     nil,
	}
}

func NewStringValue() *StringValue {
	return NewStringValueDefault("")
}

func (val *StringValue) Set(raw string) error {
	val.Value = raw
	val.IsDefault = false
	return nil
}

func (val *StringValue) String() string {
	return val.Value
}

// DurationValue accepts time.ParseDuration syntax.
type DurationValue struct {
	Value     time.Duration
	IsDefault bool
	Error     error
}

func NewDurationValueDefault(defaultValue time.Duration) *DurationValue {
	return &DurationValue{
		Value:     defaultValue,
		IsDefault: true,
	}
}

func (val *DurationValue) Set(raw string) error {
	actual, err := time.ParseDuration(raw)
	if err != nil {
		val.Error = err
		return err
	}
	if actual < 0 {
		val.Error = fmt.Errorf("Duration should not be negative: %v", raw)
		return val.Error
	}
	val.Value = actual
	val.IsDefault = false
	return nil
}

func (val *DurationValue) String() string {
	return val.Value.String()
}

// NetEndpointValue
type NetEndpointValue struct {
	Scheme       string
	UserInfo     string
	Host         string
	Port         uint32
	HasPort      bool
	IsDefault    bool
	Error        error
	ValidSchemes []string
}

func (val *NetEndpointValue) IsSchemeValid(scheme string) bool {
	for _, validScheme := range val.ValidSchemes {
		if scheme == validScheme {
			return true
		}
	}
	return false
}

func (val *NetEndpointValue) SetAuthority(authority string) error {
	var userInfo, host, port string
	if authority == "" {
		val.UserInfo, val.Host, val.Port, val.HasPort = "", "", 0, false
		return nil
	}

	if strings.Contains(authority, "/") {
		return fmt.Errorf("Invalid charactor \"/\"")
	}

	hostPort := authority
	if idx := strings.Index(authority, "@"); idx != -1 {
		userInfo, hostPort = authority[:idx], authority[idx+1:]
	}

	hasPort := false
	if idx := strings.LastIndex(hostPort, ":"); idx != -1 {
		hasPort = true
		host, port = hostPort[:idx], hostPort[idx+1:]
	} else {
		host, port = hostPort, "0"
	}

	actPort, err := strconv.ParseUint(port, 10, 32)
	if err != nil {
		return fmt.Errorf("Port should be an integer: %s", port)
	}
	if actPort > 0xFFFF {
		return fmt.Errorf("Port out of range: %v", actPort)
	}
	val.Port = uint32(actPort)
	val.UserInfo = userInfo
	val.Host = host
	val.HasPort = hasPort
	return nil
}

func NewNetEndpointValueDefault(validSchemes []string, netEndpoint string) (*NetEndpointValue, error) {
	instance := &NetEndpointValue{
		ValidSchemes: validSchemes,
	}
	if err := instance.Set(netEndpoint); err != nil {
		return nil, err
	}
	instance.IsDefault = true
	return instance, nil
}

func NewNetEndpointValue(validSchemes []string) (*NetEndpointValue, error) {
	return NewNetEndpointValueDefault(validSchemes, "")
}

func (val *NetEndpointValue) Set(raw string) error {
	var scheme, authority string

	if idx := strings.Index(raw, "://"); idx != -1 {
		scheme, authority = raw[:idx], raw[idx+3:]
		if !val.IsSchemeValid(scheme) {
			val.Error = fmt.Errorf("Unsupported network endpoint scheme: %v", scheme)
			return val.Error
		}
	} else {
		authority = raw
	}

	// Parse authority part.
	if err := val.SetAuthority(authority); err != nil {
		val.Error = fmt.Errorf("Invalid authority format: %v", err.Error())
		return val.Error
	}
	val.Scheme = scheme
	val.IsDefault = false
	return nil
}

func (val *NetEndpointValue) String() string {
	schemeRaw := ""

	if val.Scheme != "" {
		schemeRaw = val.Scheme + "://"
	}
	return schemeRaw + val.AuthorityString()
}

// AuthorityString is the dialable host:port form.
func (val *NetEndpointValue) AuthorityString() string {
	userInfoRaw, portRaw := "", ""
	if val.UserInfo != "" {
		userInfoRaw = val.UserInfo + "@"
	}
	if val.HasPort {
		portRaw = fmt.Sprintf(":%v", val.Port)
	}
	return userInfoRaw + val.Host + portRaw
}

// Address is host:port without user info, suitable for net.Dial and net.Listen.
func (val *NetEndpointValue) Address() string {
	if !val.HasPort {
		return val.Host
	}
	return fmt.Sprintf("%v:%v", val.Host, val.Port)
}

// BoolValue
type BoolValue struct {
	Value     bool
	IsDefault bool
	Error     error
}

func NewBoolValueDefault(boolDefault bool) *BoolValue {
	return &BoolValue{
		Value:     boolDefault,
		IsDefault: true,
		Error:     nil,
	}
}

func NewBoolValue() *BoolValue {
	return NewBoolValueDefault(false)
}

func (val *BoolValue) Set(raw string) error {
	switch lower := strings.ToLower(raw); lower {
	case "true", "1", "yes":
		val.Value = true
	case "false", "0", "no":
		val.Value = false
	default:
		return fmt.Errorf("Invalid value: %v", raw)
	}

	val.IsDefault = false
	return nil
}

// IsBoolFlag lets "-debug" stand for "-debug=true".
func (val *BoolValue) IsBoolFlag() bool {
	return true
}

func (val *BoolValue) String() string {
	if val.Value {
		return "true"
	}
	return "false"
}
