package domain

// Platform is a one-off snapshot of the machine the agent runs on.
type Platform struct {
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platformVersion"`
	KernelArch      string `json:"kernelArch"`
	CPUs            int    `json:"cpus"`
	MemoryTotal     uint64 `json:"memoryTotal"`
}
