package main

import (
	"testing"
)

func TestRootCommandWiring(t *testing.T) {
	want := map[string]bool{"layout": false, "simulate": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	for _, flag := range []string{"verbose", "quiet", "json", "no-color", "debug", "layout"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	output, err := captureOutput(t, func() error {
		versionCmd.Run(versionCmd, nil)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, output, []string{"bootleg dev", "commit: none"})
}
