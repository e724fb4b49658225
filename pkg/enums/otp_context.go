package enums

import "fmt"

// OtpContext scopes a one-time code to the action it gates.
type OtpContext string

const (
	OtpContextPhysicalRedeem OtpContext = "physical_redeem"
)

var validOtpContexts = []OtpContext{OtpContextPhysicalRedeem}

func (c OtpContext) IsValid() bool {
	for _, candidate := range validOtpContexts {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseOtpContext(value string) (OtpContext, error) {
	for _, candidate := range validOtpContexts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid otp context %q", value)
}
