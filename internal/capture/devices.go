package capture

import "gocv.io/x/gocv"

// maxProbeDevices bounds the device index scan.
const maxProbeDevices = 8

// ListDevices probes camera indices and returns the ones that open.
// Probing opens and immediately closes each device, so it should not run
// while a session holds the camera.
func ListDevices() []int {
	var devices []int
	for i := 0; i < maxProbeDevices; i++ {
		cap, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		if cap.IsOpened() {
			devices = append(devices, i)
		}
		cap.Close()
	}
	return devices
}

// ProbeDevice reports whether the device at index opens and delivers a
// frame. Like ListDevices, it briefly claims the device.
func ProbeDevice(index int) bool {
	cap, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return false
	}
	defer cap.Close()

	if !cap.IsOpened() {
		return false
	}

	frame := gocv.NewMat()
	defer frame.Close()
	return cap.Read(&frame) && !frame.Empty()
}
