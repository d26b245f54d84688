// Package docs registers the Swagger document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {"get": {"tags": ["系统"], "summary": "健康检查", "responses": {"200": {"description": "OK"}}}},
        "/register": {"post": {"tags": ["认证"], "summary": "注册新用户", "responses": {"201": {"description": "Created"}, "409": {"description": "邮箱已被注册"}}}},
        "/login": {"post": {"tags": ["认证"], "summary": "用户登录", "responses": {"200": {"description": "OK"}, "401": {"description": "邮箱或密码错误"}}}},
        "/profile": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["认证"], "summary": "当前用户信息", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"ApiKeyAuth": []}], "tags": ["认证"], "summary": "修改姓名", "responses": {"200": {"description": "OK"}}}
        },
        "/subjects": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["科目"], "summary": "科目列表", "responses": {"200": {"description": "OK"}}}},
        "/subjects/{id}/topics": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["科目"], "summary": "科目下的主题", "responses": {"200": {"description": "OK"}}}},
        "/subjects/{id}/topics/{number}": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["科目"], "summary": "主题学习材料", "responses": {"200": {"description": "OK"}, "404": {"description": "主题未配置"}}}},
        "/exams": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["考试"], "summary": "考试历史", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["考试"], "summary": "开始考试", "responses": {"201": {"description": "Created"}, "404": {"description": "没有可用题目"}, "409": {"description": "正在开始另一场考试"}}}
        },
        "/exams/{id}/answer": {"put": {"security": [{"ApiKeyAuth": []}], "tags": ["考试"], "summary": "作答当前题目", "responses": {"200": {"description": "OK"}}}},
        "/exams/{id}/next": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["考试"], "summary": "下一题", "responses": {"200": {"description": "OK"}, "409": {"description": "已是最后一题"}}}},
        "/exams/{id}/prev": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["考试"], "summary": "上一题", "responses": {"200": {"description": "OK"}, "409": {"description": "已是第一题"}}}},
        "/exams/{id}/finish": {"post": {"security": [{"ApiKeyAuth": []}], "tags": ["考试"], "summary": "交卷", "responses": {"200": {"description": "OK"}, "503": {"description": "成绩未保存，可重试"}}}},
        "/exams/{id}/result": {"get": {"security": [{"ApiKeyAuth": []}], "tags": ["考试"], "summary": "考试成绩", "responses": {"200": {"description": "OK"}}}},
        "/admin/subjects/{id}/topics": {"put": {"security": [{"ApiKeyAuth": []}], "tags": ["管理"], "summary": "保存主题配置", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "ExamPrep 后端 API",
	Description:      "题库练习与学习资料后端服务。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
