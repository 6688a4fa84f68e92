//go:build !darwin && !linux && !windows

package cookietap

func chromiumUserDataDirs(Browser) []string { return nil }

func firefoxRoots() []string { return nil }

func safariConfigs() []BrowserConfig { return nil }
