package dto

import (
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- TrimStruct tests ---

func TestTrimStruct_TrimsWhitespace(t *testing.T) {
	req := RewardRequest{
		RecipientID: "  7f9c2a52-3c55-4d43-8a53-2f1ff1b4a0c1  ",
		Amount:      " 10 ",
		Reason:      " Volunteer shift ",
	}
	TrimStruct(&req)

	assert.Equal(t, "7f9c2a52-3c55-4d43-8a53-2f1ff1b4a0c1", req.RecipientID)
	assert.Equal(t, "10", req.Amount)
	assert.Equal(t, "Volunteer shift", req.Reason)
}

func TestTrimStruct_KeepsTextVerbatim(t *testing.T) {
	req := RewardRequest{Reason: " Tom & Jerry <quiz> "}
	TrimStruct(&req)

	assert.Equal(t, "Tom & Jerry <quiz>", req.Reason)
}

func TestTrimStruct_HandlesPointerString(t *testing.T) {
	type withPtr struct {
		Note  *string
		Empty *string
	}
	note := "  hi  "
	v := withPtr{Note: &note}
	TrimStruct(&v)

	assert.Equal(t, "hi", *v.Note)
	assert.Nil(t, v.Empty)
}

func TestTrimStruct_NonPointerIsNoOp(t *testing.T) {
	req := RewardRequest{Reason: "  keep  "}
	TrimStruct(req)
	assert.Equal(t, "  keep  ", req.Reason)
}

// --- Amount parsing ---

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		want  string
	}{
		{"10", true, "10"},
		{" 0.5 ", true, "0.5"},
		{"1." + strings.Repeat("0", 17) + "1", true, "1.000000000000000001"},
		{"1." + strings.Repeat("0", 18) + "1", false, ""},
		{"2.5" + strings.Repeat("0", 20), true, "2.5"},
		{"0", false, ""},
		{"-3", false, ""},
		{"ten", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if !tt.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestValidIdempotencyKey(t *testing.T) {
	assert.True(t, ValidIdempotencyKey("course-101:week-3"))
	assert.True(t, ValidIdempotencyKey("a.b_c"))
	assert.False(t, ValidIdempotencyKey(""))
	assert.False(t, ValidIdempotencyKey("has space"))
	assert.False(t, ValidIdempotencyKey(strings.Repeat("k", 129)))
}

// --- Binding tags ---

func TestBinding_CheckoutRequest(t *testing.T) {
	buyer := "7f9c2a52-3c55-4d43-8a53-2f1ff1b4a0c1"
	hash := "0x" + strings.Repeat("ab", 32)

	tests := []struct {
		name  string
		req   CheckoutRequest
		valid bool
	}{
		{"buyer only", CheckoutRequest{BuyerID: buyer}, true},
		{"verified with hash", CheckoutRequest{BuyerID: buyer, Mode: "verified", TxHash: hash}, true},
		{"missing buyer", CheckoutRequest{}, false},
		{"bad buyer", CheckoutRequest{BuyerID: "42"}, false},
		{"unknown mode", CheckoutRequest{BuyerID: buyer, Mode: "cash"}, false},
		{"short hash", CheckoutRequest{BuyerID: buyer, TxHash: "0xabc"}, false},
		{"bad merchant", CheckoutRequest{BuyerID: buyer, MerchantID: "shop"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestBinding_RewardRequest(t *testing.T) {
	recipient := "7f9c2a52-3c55-4d43-8a53-2f1ff1b4a0c1"

	assert.NoError(t, binding.Validator.ValidateStruct(&RewardRequest{RecipientID: recipient, Amount: "12.5"}))
	assert.Error(t, binding.Validator.ValidateStruct(&RewardRequest{RecipientID: recipient, Amount: "0"}))
	assert.Error(t, binding.Validator.ValidateStruct(&RewardRequest{RecipientID: recipient}))
	assert.Error(t, binding.Validator.ValidateStruct(&RewardRequest{RecipientID: recipient, Amount: "1", Reason: strings.Repeat("r", 256)}))
}
