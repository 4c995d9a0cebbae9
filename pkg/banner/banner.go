package banner

import (
	"fmt"

	"chatforum/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗███████╗ ██████╗ ██████╗ ██╗   ██╗███╗   ███╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██╔════╝██╔═══██╗██╔══██╗██║   ██║████╗ ████║
██║     ███████║███████║   ██║   █████╗  ██║   ██║██████╔╝██║   ██║██╔████╔██║
██║     ██╔══██║██╔══██║   ██║   ██╔══╝  ██║   ██║██╔══██╗██║   ██║██║╚██╔╝██║
╚██████╗██║  ██║██║  ██║   ██║   ██║     ╚██████╔╝██║  ██║╚██████╔╝██║ ╚═╝ ██║
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝      ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚═╝     ╚═╝
`

// PrintWithEff prints the banner using an EffectiveConfigResult which
// provides runtime context (listen address, data path, config source).
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:    %s\n", addr)
	fmt.Printf("Data Path: %s\n", eff.DataPath)
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	fmt.Printf("Config:    %s\n", src)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -X POST 'http://<host>:<port>/v1/digest' -d '{\"channelId\": \"c1\", \"userId\": \"u1\", \"slug\": \"python\", \"messages\": []}'")
	fmt.Println("curl 'http://<host>:<port>/v1/digest?channelId=c1'")
	fmt.Println("\n== Production? =================================================")
	be := 0
	fe := 0
	ak := 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
		fe = len(eff.Config.Security.APIKeys.Frontend)
		ak = len(eff.Config.Security.APIKeys.Admin)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}
	if ak > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", ak)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for admin tooling)")
	}

	// TLS
	if eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	// Generation backend
	if eff.Config != nil && eff.Config.Generation.Configured() {
		model := eff.Config.Generation.Model
		if model != "" {
			fmt.Printf("- Generation: configured (model=%s)\n", model)
		} else {
			fmt.Println("- Generation: configured")
		}
	} else {
		fmt.Println("- Generation: UNCONFIGURED (digest requests will be rejected)")
	}

	// Sweeper
	swEnabled := false
	swCron := ""
	if eff.Config != nil {
		swEnabled = eff.Config.Sweeper.Enabled
		swCron = eff.Config.Sweeper.Cron
	}
	if swEnabled {
		if swCron != "" {
			fmt.Printf("- Sweeper: enabled (cron=%s)\n", swCron)
		} else {
			fmt.Println("- Sweeper: enabled")
		}
	} else {
		fmt.Println("- Sweeper: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}
