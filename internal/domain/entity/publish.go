// Package entity 定义领域实体
package entity

import "sort"

// ArtifactSet 一次生成得到的产物集合：文件名 -> 内容。
// 每次发布重新生成，生成后不再修改
type ArtifactSet map[string][]byte

// PublishState 当前已发布版本的指针状态，按站点存储。
// 只在该版本的全部产物上传成功后写入，读者不会看到半成品版本
type PublishState struct {
	Version string `json:"version"`
	// Files 逻辑文件名 -> 带版本号的存储文件名
	Files     map[string]string `json:"files"`
	UpdatedAt int64             `json:"updatedAt"`
}

// ManifestFile manifest 中的文件条目
type ManifestFile struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Manifest 面向前端/构建系统的公开清单，短缓存、可被轮询。
// filesMap 与 files 内容等价，数组形式兼容无法遍历对象键的消费方
type Manifest struct {
	Version   string            `json:"version"`
	FilesMap  map[string]string `json:"filesMap"`
	Files     []ManifestFile    `json:"files"`
	UpdatedAt int64             `json:"updatedAt"`
}

// NewManifest 由发布状态派生清单
func NewManifest(state *PublishState) *Manifest {
	keys := make([]string, 0, len(state.Files))
	for key := range state.Files {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	files := make([]ManifestFile, 0, len(keys))
	for _, key := range keys {
		files = append(files, ManifestFile{Name: state.Files[key], Key: key})
	}
	return &Manifest{
		Version:   state.Version,
		FilesMap:  state.Files,
		Files:     files,
		UpdatedAt: state.UpdatedAt,
	}
}

// PublishResult 一次发布的结果
type PublishResult struct {
	Success bool   `json:"success"`
	SiteID  int    `json:"site_id"`
	Version string `json:"version"`
	// Files 逻辑文件名 -> 带版本号的存储文件名
	Files      map[string]string `json:"files"`
	DurationMS int64             `json:"duration_ms"`
}
