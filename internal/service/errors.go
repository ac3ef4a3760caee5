package service

import "errors"

// 哨兵错误：对外统一语义，隐藏底层实现细节。
// Handler 层通过 mapServiceError 把它们映射成 HTTP 状态码。
var (
	// ErrInvalidInput 请求参数非法（空名称、非正的分页大小、未知排序方式等）
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials 用户名或密码错误（登录时统一返回，防止用户枚举）
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists 用户已存在（注册时）
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrCategoryNotFound 分类不存在
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryAlreadyExists 分类名已被占用
	ErrCategoryAlreadyExists = errors.New("category already exists")
	// ErrCategoryHasChildren 分类下仍有子节点，禁止直接删除
	ErrCategoryHasChildren = errors.New("category has children")
	// ErrCorruptHierarchy 分类层级数据损坏（闭包遍历发现环或悬挂父指针）。
	// 这是确定性的存储损坏信号，不应重试；调用方应报告给运维。
	ErrCorruptHierarchy = errors.New("corrupt category hierarchy")
	// ErrSubmissionNotFound 提交不存在（或已被软删除）
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionAlreadyExists 提交规范名已被占用
	ErrSubmissionAlreadyExists = errors.New("submission already exists")
	// ErrSubmissionNotOwned 提交不属于当前用户，禁止删除
	ErrSubmissionNotOwned = errors.New("submission does not belong to user")
	// ErrTagNotFound 标签不存在
	ErrTagNotFound = errors.New("tag not found")
	// ErrResultNotFound 结果不存在（或已被软删除）
	ErrResultNotFound = errors.New("result not found")
	// ErrRefInUse 分类引用下仍有未删除的结果，禁止摘除
	ErrRefInUse = errors.New("submission category ref has live results")
	// ErrInternal 内部错误（对外不暴露细节）
	ErrInternal = errors.New("internal server error")
)
