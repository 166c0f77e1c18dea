package validator

import "testing"

type otpRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	OTP         string `json:"otp" validate:"omitempty,len=6,numeric"`
}

func TestValidateStructPasses(t *testing.T) {
	req := otpRequest{PhoneNumber: "+15551230000", OTP: "123456"}
	if err := ValidateStruct(req); err != nil {
		t.Fatalf("expected validation to pass: %v", err)
	}
}

func TestValidateStructRejectsMalformedPhone(t *testing.T) {
	req := otpRequest{PhoneNumber: "not-a-number"}
	err := ValidateStruct(req)
	if err == nil {
		t.Fatal("expected validation failure")
	}

	failures, ok := err.(ValidationErrors)
	if !ok || len(failures) == 0 {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if failures[0].Field != "phone_number" {
		t.Fatalf("expected json field name, got %s", failures[0].Field)
	}
}

func TestValidateStructRejectsShortOTP(t *testing.T) {
	req := otpRequest{PhoneNumber: "+15551230000", OTP: "12"}
	if err := ValidateStruct(req); err == nil {
		t.Fatal("expected validation failure for short otp")
	}
}
