package controller

import (
	"encoding/json"
	"examprep_backend/internal/service"
	"examprep_backend/internal/util"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type SubjectController struct {
	SubjectService *service.SubjectService
	TopicService   *service.TopicService
}

func NewSubjectController(subjectService *service.SubjectService, topicService *service.TopicService) *SubjectController {
	return &SubjectController{
		SubjectService: subjectService,
		TopicService:   topicService,
	}
}

func subjectID(ctx *gin.Context) (uint, bool) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid subject id")
		return 0, false
	}
	return id, true
}

// ListSubjects godoc
// @Summary 科目列表
// @Tags 科目
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]repository.SubjectListRow}
// @Router /subjects [get]
func (c *SubjectController) ListSubjects(ctx *gin.Context) {
	rows, err := c.SubjectService.List(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// GetSubject godoc
// @Summary 科目详情
// @Tags 科目
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "科目ID"
// @Success 200 {object} util.Response{data=model.Subject}
// @Router /subjects/{id} [get]
func (c *SubjectController) GetSubject(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}
	subject, err := c.SubjectService.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// ListTopics godoc
// @Summary 科目下的主题
// @Tags 科目
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "科目ID"
// @Success 200 {object} util.Response{data=[]service.TopicContent}
// @Router /subjects/{id}/topics [get]
func (c *SubjectController) ListTopics(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}
	topics, err := c.TopicService.ListTopics(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// GetTopic godoc
// @Summary 主题学习材料
// @Description 返回 PDF 页码区间和视频，未配置时返回 404
// @Tags 科目
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "科目ID"
// @Param   number path int true "主题编号"
// @Success 200 {object} util.Response{data=service.TopicContent}
// @Failure 404 {object} util.Response "主题未配置"
// @Router /subjects/{id}/topics/{number} [get]
func (c *SubjectController) GetTopic(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}
	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil || number < 1 {
		util.BadRequest(ctx, "invalid topic number")
		return
	}

	content, err := c.TopicService.ResolveTopic(ctx.Request.Context(), id, number)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// CreateSubject godoc
// @Summary 创建科目
// @Tags 管理
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body body service.SubjectInput true "科目"
// @Success 201 {object} util.Response{data=model.Subject}
// @Failure 409 {object} util.Response "名称已存在"
// @Router /admin/subjects [post]
func (c *SubjectController) CreateSubject(ctx *gin.Context) {
	var req service.SubjectInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	subject, err := c.SubjectService.Create(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// UpdateSubject godoc
// @Summary 修改科目
// @Tags 管理
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id path int true "科目ID"
// @Param   body body service.SubjectInput true "科目"
// @Success 200 {object} util.Response{data=model.Subject}
// @Router /admin/subjects/{id} [put]
func (c *SubjectController) UpdateSubject(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}
	var req service.SubjectInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	subject, err := c.SubjectService.Update(ctx.Request.Context(), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// DeleteSubject godoc
// @Summary 删除科目
// @Description 同时删除题目、主题配置和 PDF 文件
// @Tags 管理
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "科目ID"
// @Success 200 {object} util.Response
// @Router /admin/subjects/{id} [delete]
func (c *SubjectController) DeleteSubject(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}
	if err := c.SubjectService.Delete(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type SaveTopicsRequest struct {
	Topics []service.TopicInput `json:"topics"`
}

// SaveTopics godoc
// @Summary 保存主题配置
// @Description multipart 表单：可选文件 pdf，字段 topics 为 JSON 数组；也接受 JSON 请求体（沿用当前 PDF）
// @Tags 管理
// @Security ApiKeyAuth
// @Accept  multipart/form-data
// @Accept  json
// @Produce  json
// @Param   id path int true "科目ID"
// @Param   pdf formData file false "PDF 文件"
// @Param   topics formData string false "主题 JSON"
// @Success 200 {object} util.Response{data=[]service.TopicContent}
// @Router /admin/subjects/{id}/topics [put]
func (c *SubjectController) SaveTopics(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}

	var req SaveTopicsRequest
	var pdf io.Reader
	var size int64

	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		if raw := ctx.PostForm("topics"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Topics); err != nil {
				util.BadRequest(ctx, "topics must be a JSON array")
				return
			}
		}
		if fh, err := ctx.FormFile("pdf"); err == nil {
			f, err := fh.Open()
			if err != nil {
				util.LogInternalError(ctx, err)
				return
			}
			defer f.Close()
			pdf, size = f, fh.Size
		}
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	topics, err := c.SubjectService.SaveTopics(ctx.Request.Context(), id, pdf, size, req.Topics)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// UploadPDF godoc
// @Summary 上传科目 PDF
// @Description 只上传文件并返回存储 key，不修改主题配置
// @Tags 管理
// @Security ApiKeyAuth
// @Accept  multipart/form-data
// @Produce  json
// @Param   id path int true "科目ID"
// @Param   pdf formData file true "PDF 文件"
// @Success 201 {object} util.Response
// @Router /admin/subjects/{id}/pdf [post]
func (c *SubjectController) UploadPDF(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}
	if _, err := c.SubjectService.Get(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}

	fh, err := ctx.FormFile("pdf")
	if err != nil {
		util.BadRequest(ctx, "pdf file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()

	key, err := c.SubjectService.UploadPDF(ctx.Request.Context(), id, f, fh.Size)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"key": key, "url": c.SubjectService.Storage.PublicURL(key)})
}

// ListFiles godoc
// @Summary 科目存储文件
// @Tags 管理
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "科目ID"
// @Success 200 {object} util.Response{data=[]service.SubjectFile}
// @Router /admin/subjects/{id}/files [get]
func (c *SubjectController) ListFiles(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}
	files, err := c.SubjectService.ListFiles(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, files)
}

// CleanupFiles godoc
// @Summary 删除未被引用的 PDF
// @Tags 管理
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "科目ID"
// @Success 200 {object} util.Response
// @Router /admin/subjects/{id}/files [delete]
func (c *SubjectController) CleanupFiles(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}
	n, err := c.SubjectService.CleanupFiles(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"removed": n})
}

type ImportQuestionsRequest struct {
	Questions []service.QuestionInput `json:"questions" binding:"required,min=1"`
}

// ImportQuestions godoc
// @Summary 批量导入题目
// @Tags 管理
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id path int true "科目ID"
// @Param   body body ImportQuestionsRequest true "题目列表"
// @Success 201 {object} util.Response
// @Router /admin/subjects/{id}/questions [post]
func (c *SubjectController) ImportQuestions(ctx *gin.Context) {
	id, ok := subjectID(ctx)
	if !ok {
		return
	}
	var req ImportQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	n, err := c.SubjectService.ImportQuestions(ctx.Request.Context(), id, req.Questions)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"imported": n})
}
