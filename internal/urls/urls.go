package urls

// Project is reported to Moonraker when identifying the connection
const Project = "https://github.com/muurk/klipprompt"

// KlipperPrompts documents the action:prompt_ comments macros emit
const KlipperPrompts = "https://www.klipper3d.org/G-Codes.html#respond"

// MoonrakerZeroconf explains the [zeroconf] section that makes a printer
// discoverable over mDNS.
const MoonrakerZeroconf = "https://moonraker.readthedocs.io/en/latest/configuration/#zeroconf"

// MoonrakerAuthorization covers API keys and trusted clients
const MoonrakerAuthorization = "https://moonraker.readthedocs.io/en/latest/configuration/#authorization"
