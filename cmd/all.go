package cmd

import (
	_ "frp-manager/cmd/auth"
	_ "frp-manager/cmd/root"
	_ "frp-manager/cmd/server"
	_ "frp-manager/cmd/tunnel"
	_ "frp-manager/cmd/user"
)
