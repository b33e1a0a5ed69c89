/*
 * @date: 2025.11.22
 * @description: escaner 主程序入口
 * @func: server/migrate/seed/import/watch/token/version 子命令
 */

package main

func main() {
	Execute()
}
