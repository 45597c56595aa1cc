package main

import (
	"testing"
)

func TestParseLevelArg(t *testing.T) {
	tests := []struct {
		args    []string
		want    string
		wantErr bool
	}{
		{[]string{"42"}, "42", false},
		{[]string{"42.6"}, "42.6", false},
		{[]string{"-5"}, "-5", false},
		{[]string{"abc"}, "", true},
		{[]string{}, "", true},
		{[]string{"1", "2"}, "", true},
	}
	for _, tt := range tests {
		got, err := parseLevelArg(tt.args)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseLevelArg(%v) = (%q, %v), want (%q, wantErr %v)", tt.args, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestFillBar(t *testing.T) {
	tests := map[float64]string{
		4.5:  "[                    ] 4.5%",
		39.5: "[#######             ] 39.5%",
		74.5: "[##############      ] 74.5%",
	}
	for in, want := range tests {
		if got := fillBar(in); got != want {
			t.Errorf("fillBar(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestCommandTree(t *testing.T) {
	cmd := NewCommand()
	for _, name := range []string{"daemon", "simulate", "status", "level", "preview", "charging", "toggle", "watch", "version"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub == cmd {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"log-level", "config", "daemon-socket", "daemon-addr"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("global flag --%s missing", flag)
		}
	}
}
