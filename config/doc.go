// Package config 提供 campusqa 的配置管理功能。
//
// 包含配置加载与校验。支持从 YAML 文件和环境变量加载配置，
// 优先级为 默认值 → YAML 文件 → 环境变量。
// 所有组件在构造时接收显式的配置结构体，运行期不读取任何全局可变状态。
package config
