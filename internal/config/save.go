package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/mymovies/internal/infra/fsx"
)

// SaveAPIKey 把 lookup.api_key 写回 <dir>/mymovies.yaml。
//
// 在 yaml.Node 上原地修改，文件里的其它键、顺序与注释都保留。
func SaveAPIKey(dir, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key must not be empty")
	}
	path := filepath.Join(dir, FileName)

	var doc yaml.Node
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return err
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return &Error{Code: ErrCodeInvalid, Path: path, Err: fmt.Errorf("top level must be a mapping")}
	}

	lookup := mappingChild(root, "lookup")
	setScalar(lookup, "api_key", key)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, out, fsx.Replace)
}

// mappingChild 返回 m[key]；不存在或不是 mapping（例如 "lookup:" 为空）时替换为空 mapping。
func mappingChild(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value != key {
			continue
		}
		v := m.Content[i+1]
		if v.Kind != yaml.MappingNode {
			*v = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		return v
	}
	v := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		v,
	)
	return v
}

func setScalar(m *yaml.Node, key, value string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			v := m.Content[i+1]
			v.Kind, v.Tag, v.Value, v.Style = yaml.ScalarNode, "!!str", value, 0
			v.Content = nil
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}
