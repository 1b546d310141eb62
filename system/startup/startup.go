package startup

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/dvelikov/climate-controller/internal/config"
	"github.com/dvelikov/climate-controller/internal/relay"
)

// WriteBootScript writes a shell script that drives every relay pin to its
// inactive level. Run at boot (before this process starts) so the relay board
// comes up with everything off, even after a crash or power failure.
func WriteBootScript(cfg *config.Config, pins map[string]relay.Pin) error {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Climate controller relay pin configuration at boot", "")

	names := make([]string, 0, len(pins))
	for name := range pins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pin := pins[name]
		drive := "dh"
		if pin.ActiveHigh {
			drive = "dl"
		}
		lines = append(lines, fmt.Sprintf("# %s", name))
		lines = append(lines, fmt.Sprintf("pinctrl set %d op pn %s", pin.Number, drive))
		lines = append(lines, "")
	}

	contents := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(cfg.BootScriptFilePath, []byte(contents), 0755)
}

// InstallBootService writes a oneshot systemd unit that runs the boot script.
func InstallBootService(cfg *config.Config) error {
	unitContents := fmt.Sprintf(`[Unit]
Description=Configure climate relay pins at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, cfg.BootScriptFilePath)

	return os.WriteFile(cfg.OSServicePath, []byte(unitContents), 0644)
}

// RunBootScript executes the boot script immediately.
func RunBootScript(cfg *config.Config) error {
	cmd := exec.Command("/bin/bash", cfg.BootScriptFilePath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
