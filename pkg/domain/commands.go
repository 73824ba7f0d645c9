package domain

type CommandDownload struct {
	URL       string
	OutputDir string
	SHA256    string
}

type CommandExtract struct {
	File  string
	Force bool
}

type CommandMount struct {
	Image      string
	Mountpoint string
	Partition  int
	UseFdisk   bool
}

type CommandUpdate struct {
	Mountpoint string
	Hosts      string
	Index      string
	Netmask    string
	Gateway    string
	DNS        string
	Interface  string
	DeviceTree string
	ResolvConf bool
}

type CommandUmount struct {
	Mountpoint string
}

type CommandList struct{}

type CommandFlash struct {
	Image     string
	Device    string
	Yes       bool
	BlockSize int64
	NoEject   bool
}
