package scan

// Summary 批次处理结果
// Processed 为成功提交的主机数，Errors 为失败主机数，Conflicts 为已提交主机记录的冲突数
type Summary struct {
	Processed int `json:"processed"`
	Conflicts int `json:"conflicts"`
	Errors    int `json:"errors"`
}

// Add 累加另一个结果
func (s *Summary) Add(other Summary) {
	s.Processed += other.Processed
	s.Conflicts += other.Conflicts
	s.Errors += other.Errors
}

// ReceiveResponse 上报接口响应
type ReceiveResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Summary *Summary `json:"summary,omitempty"`
	Subnet  string   `json:"subnet,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}
