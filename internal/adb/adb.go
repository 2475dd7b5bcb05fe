// Package adb wraps the bridge tool used to talk to a device: shell
// command execution, device metadata, application lifecycle, and
// spawning the log-reader subcommand for the logcat package.
package adb

import (
	"fmt"
	"os/exec"
	"strings"
)

// Bridge runs adb commands against one device. With an empty serial the
// single connected device is addressed.
type Bridge struct {
	Path   string
	Serial string
}

// New returns a Bridge using the given adb binary, falling back to
// whatever "adb" resolves to on PATH.
func New(path, serial string) *Bridge {
	if path == "" {
		if found, err := exec.LookPath("adb"); err == nil {
			path = found
		} else {
			path = "adb"
		}
	}
	return &Bridge{Path: path, Serial: serial}
}

// args prepends the serial selector when one is configured.
func (b *Bridge) args(rest ...string) []string {
	if b.Serial != "" {
		return append([]string{"-s", b.Serial}, rest...)
	}
	return rest
}

// run executes adb with the given arguments and returns its combined
// output.
func (b *Bridge) run(rest ...string) (string, error) {
	cmd := exec.Command(b.Path, b.args(rest...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("adb %s: %w", strings.Join(rest, " "), err)
	}
	return string(out), nil
}

// Shell executes a shell command on the device and returns its captured
// output. This is the control channel the logcat monitor uses to clear
// the device log and to write synchronization markers.
func (b *Bridge) Shell(cmd string) (string, error) {
	return b.run("shell", cmd)
}

// Getprop reads a system property from the device.
func (b *Bridge) Getprop(name string) (string, error) {
	out, err := b.Shell("getprop " + name)
	return strings.TrimSpace(out), err
}

// BuildType returns the device build type, e.g. "userdebug".
func (b *Bridge) BuildType() (string, error) {
	return b.Getprop("ro.build.type")
}

// ProductModel returns the product model name, e.g. "Galaxy Nexus".
func (b *Bridge) ProductModel() (string, error) {
	return b.Getprop("ro.product.model")
}

// StartActivity launches an application activity through the activity
// manager. extras are passed as string intent extras.
func (b *Bridge) StartActivity(pkg, activity string, extras map[string]string) error {
	args := []string{"shell", "am", "start", "-n", pkg + "/" + activity}
	for k, v := range extras {
		args = append(args, "-e", k, v)
	}
	_, err := b.run(args...)
	return err
}

// CloseApplication force-stops all processes of the package.
func (b *Bridge) CloseApplication(pkg string) error {
	_, err := b.run("shell", "am", "force-stop", pkg)
	return err
}

// Device is one entry from "adb devices".
type Device struct {
	Serial string
	State  string
}

// Devices lists the devices known to the local adb server.
func (b *Bridge) Devices() ([]Device, error) {
	out, err := b.run("devices")
	if err != nil {
		return nil, err
	}
	return parseDevices(out), nil
}

func parseDevices(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, Device{Serial: fields[0], State: fields[1]})
	}
	return devices
}
