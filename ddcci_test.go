// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"testing"
)

func TestDecodeDualBank(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
		want DualBankInfo
	}{
		{
			name: "diff mode, user2 active",
			resp: []byte{0xCA, 0x09, 0x01, 0x01, 0x02, 0x02, 0x05, 0x03, 0x07, 0x00, 0x00},
			want: DualBankInfo{
				Enabled:      true,
				Mode:         DualBankDiff,
				ActiveBank:   BankUser2,
				User1Version: FirmwareVersion{Major: 2, Minor: 5},
				User2Version: FirmwareVersion{Major: 3, Minor: 7},
			},
		},
		{
			name: "dual bank disabled",
			resp: []byte{0xCA, 0x09, 0x00, 0x01, 0x02, 0x02, 0x05, 0x03, 0x07, 0x00, 0x00},
			want: DualBankInfo{ActiveBank: BankInvalid},
		},
		{
			name: "copy mode still decodes",
			resp: []byte{0xCA, 0x09, 0x01, 0x02, 0x00, 0x01, 0x00, 0x01, 0x01, 0x00, 0x00},
			want: DualBankInfo{
				Enabled:      true,
				Mode:         DualBankCopy,
				ActiveBank:   BankBoot,
				User1Version: FirmwareVersion{Major: 1, Minor: 0},
				User2Version: FirmwareVersion{Major: 1, Minor: 1},
			},
		},
		{
			name: "old firmware echoes garbage header",
			resp: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			want: DualBankInfo{ActiveBank: BankInvalid},
		},
		{
			name: "mode out of range downgrades",
			resp: []byte{0xCA, 0x09, 0x01, 0x07, 0x01, 0x01, 0x00, 0x01, 0x01, 0x00, 0x00},
			want: DualBankInfo{ActiveBank: BankInvalid},
		},
		{
			name: "bank out of range downgrades",
			resp: []byte{0xCA, 0x09, 0x01, 0x01, 0x05, 0x01, 0x00, 0x01, 0x01, 0x00, 0x00},
			want: DualBankInfo{ActiveBank: BankInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeDualBank(tt.resp)
			if *got != tt.want {
				t.Errorf("decodeDualBank() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestQueryDualBank(t *testing.T) {
	sim := newSimBus()
	sim.dualBankResp = []byte{0xCA, 0x09, 0x01, 0x01, 0x02, 0x02, 0x05, 0x03, 0x07, 0x00, 0x00}
	d := newTestDevice(sim, nil)

	info, err := d.queryDualBank()
	if err != nil {
		t.Fatal(err)
	}

	if !info.Enabled || info.Mode != DualBankDiff || info.ActiveBank != BankUser2 {
		t.Errorf("unexpected decode: %+v", *info)
	}
	if got := info.User2Version.String(); got != "3.7" {
		t.Errorf("user2 version = %q, want \"3.7\"", got)
	}

	// the query enters DDCCI mode first
	if !sim.hasWrite([]byte{regDdcci, ddcciEnterOpcode}) {
		t.Error("DDCCI mode switch command missing")
	}
}
