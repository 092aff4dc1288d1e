package cmd

import (
	"Bpsb/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动Bpsb服务器",
	Long:  `启动HTTP服务器，提供账户、专辑搜索与播放控制API以及播放状态WebSocket`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.ListenAddr = addr
		}
		if driver, _ := cmd.Flags().GetString("store"); driver != "" {
			cfg.StoreDriver = driver
		}
		return server.Start(cfg)
	},
}

func init() {
	serverCmd.Flags().String("addr", "", "listen address (overrides LISTEN_ADDR)")
	serverCmd.Flags().String("store", "", "account store driver: file, redis, gorm, minio, memory")
	rootCmd.AddCommand(serverCmd)
}
